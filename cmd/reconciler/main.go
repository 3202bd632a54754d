package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Emeeerrr/Shop-FS/internal/app"
	"github.com/Emeeerrr/Shop-FS/internal/clock"
	"github.com/Emeeerrr/Shop-FS/internal/config"
	"github.com/Emeeerrr/Shop-FS/internal/storage/postgres"
	"github.com/Emeeerrr/Shop-FS/internal/wompi"
	"github.com/Emeeerrr/Shop-FS/migrations"
	"github.com/joho/godotenv"
)

// The reconciler sweeps transactions left PENDING by crashed or failed
// checkouts and resolves them against the gateway.
func main() {
	_ = godotenv.Load()
	logger := log.Default()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startupCtx, startupCancel := context.WithTimeout(ctx, 5*time.Second)
	defer startupCancel()

	pool, err := postgres.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	gateway := wompi.NewClient(wompi.Config{
		BaseURL:         cfg.WompiBaseURL,
		PublicKey:       cfg.WompiPublicKey,
		PrivateKey:      cfg.WompiPrivateKey,
		IntegritySecret: cfg.WompiIntegritySecret,
	})

	svc := app.NewReconcileService(
		postgres.NewCheckoutRepository(pool),
		gateway,
		clock.NewSystem(),
		logger,
		cfg.StaleAfter,
	)

	logger.Printf("reconciler started: interval=%s stale_after=%s", cfg.ReconcileInterval, cfg.StaleAfter)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		resolved, err := svc.SweepOnce(ctx)
		if err != nil {
			logger.Printf("sweep: %v", err)
		} else if resolved > 0 {
			logger.Printf("sweep resolved %d stale transactions", resolved)
		}

		select {
		case <-stopCtx.Done():
			logger.Printf("reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}
