package kafkax

import "encoding/json"

// MustMarshal is for values we control end to end; a marshal failure
// there is a programming error.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
