package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Emeeerrr/Shop-FS/internal/app"
	"github.com/Emeeerrr/Shop-FS/internal/clock"
	"github.com/Emeeerrr/Shop-FS/internal/config"
	"github.com/Emeeerrr/Shop-FS/internal/domain"
	"github.com/Emeeerrr/Shop-FS/internal/kafkax"
	"github.com/Emeeerrr/Shop-FS/internal/redisx"
	"github.com/Emeeerrr/Shop-FS/internal/storage/postgres"
	transporthttp "github.com/Emeeerrr/Shop-FS/internal/transport/http"
	"github.com/Emeeerrr/Shop-FS/internal/wompi"
	"github.com/Emeeerrr/Shop-FS/migrations"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()
	logger := log.Default()

	cfg := config.Load()
	if cfg.WompiPrivateKey == "" || cfg.WompiIntegritySecret == "" {
		logger.Printf("WARN: WOMPI_PRIVATE_KEY / WOMPI_INTEGRITY_SECRET not set; gateway calls will be rejected")
	}

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

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	productRepo := postgres.NewProductRepository(pool)
	checkoutRepo := postgres.NewCheckoutRepository(pool)
	gateway := wompi.NewClient(wompi.Config{
		BaseURL:         cfg.WompiBaseURL,
		PublicKey:       cfg.WompiPublicKey,
		PrivateKey:      cfg.WompiPrivateKey,
		IntegritySecret: cfg.WompiIntegritySecret,
	})

	paymentOpts := []app.PaymentServiceOption{app.WithStatusCache(rdb)}

	var producer *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafkax.NewProducer(cfg.KafkaBrokers, domain.TopicPaymentFinalized, 256, logger)
		producer.Start(ctx)
		paymentOpts = append(paymentOpts, app.WithPublisher(producer))
	}

	paymentSvc := app.NewPaymentService(
		productRepo,
		checkoutRepo,
		gateway,
		clock.NewSystem(),
		logger,
		cfg.ServiceName,
		paymentOpts...,
	)
	productSvc := app.NewProductService(productRepo)

	router := transporthttp.NewRouter(transporthttp.RouterDeps{
		Payments: paymentSvc,
		Products: productSvc,
		Consent:  gateway,
	})
	handler := transporthttp.CORS(cfg.CORSOrigins, router)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	logger.Printf("api listening on %s", cfg.HTTPAddr)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		logger.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("server shutdown error: %v", err)
	}

	if producer != nil {
		producer.Close()
		cancel()
		producer.WaitClosed()
	}
	logger.Printf("server stopped")
}
