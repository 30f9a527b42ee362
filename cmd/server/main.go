package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smmwallet/backend/docs"
	"github.com/smmwallet/backend/internal/audit"
	"github.com/smmwallet/backend/internal/catalog"
	"github.com/smmwallet/backend/internal/config"
	"github.com/smmwallet/backend/internal/database"
	"github.com/smmwallet/backend/internal/handlers"
	mW "github.com/smmwallet/backend/internal/middleware"
	"github.com/smmwallet/backend/internal/provider"
	"github.com/smmwallet/backend/internal/services"
	"github.com/smmwallet/backend/internal/vault"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
)

// @title Wallet Engine API
// @version 1.0
// @description Wallet settlement and order fulfillment API
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.apikey AdminSecret
// @in header
// @name X-Admin-Secret

func main() {
	config.Init(".env")
	cfg := config.Load()

	docs.SwaggerInfo.Host = "localhost:" + cfg.Port
	docs.SwaggerInfo.BasePath = "/api/v1"

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEndpoint != "" {
		tp, err := initTracer(ctx, cfg.TracingEndpoint, cfg.ServiceName)
		if err != nil {
			log.Printf("Tracing disabled: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				tp.Shutdown(shutdownCtx)
			}()
		}
	}

	db := database.InitDatabase()
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	codeVault, err := vault.New(vault.Config{
		MasterKey: cfg.VaultMasterKey,
		Salt:      []byte(cfg.VaultSalt),
	})
	if err != nil {
		log.Fatalf("Failed to initialize vault: %v", err)
	}

	cat, err := catalog.Default()
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	if cfg.AdminSecret == "" {
		log.Println("ADMIN_SECRET is not set, operator routes are locked")
	}

	auditLogger := audit.NewLogger()
	gateway := provider.NewHTTPGateway(cfg.Provider.URL, cfg.Provider.APIKey, cfg.Provider.Timeout)

	ledgerService := services.NewLedgerService(db, auditLogger)
	pricingService := services.NewPricingService(db, cat, redisClient, auditLogger)
	pricingService.SetCacheTTL(cfg.PricingCacheTTL)
	codePoolService := services.NewCodePoolService(db, codeVault, auditLogger)
	noticeService := services.NewNoticeService(db)
	orderService := services.NewOrderService(db, ledgerService, pricingService, codePoolService, noticeService,
		gateway, auditLogger, services.OrderOptions{
			AsyncCompletion: cfg.Provider.AsyncCompletion,
			DispatchLease:   cfg.DispatchLease,
		})
	poller := services.NewStatusPoller(orderService, gateway, cfg.PollerInterval)

	auth := mW.NewAuth(cfg.JWTSecret, cfg.JWTExpiry)
	api := &handlers.API{
		Wallet:  handlers.NewWalletHandler(ledgerService, auth),
		Orders:  handlers.NewOrderHandler(orderService),
		Pricing: handlers.NewPricingHandler(pricingService),
		Codes:   handlers.NewCodeHandler(codePoolService),
		Notices: handlers.NewNoticeHandler(noticeService),
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(mW.PrometheusMetrics)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mW.AdminSecretHeader, mW.AdminActorHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "database unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		api.Mount(r, auth, cfg.AdminSecret)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Provider.AsyncCompletion {
		g.Go(func() error { return poller.Run(gctx) })
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
	log.Println("Server stopped")
}

func initTracer(ctx context.Context, endpoint, serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, nil
}
