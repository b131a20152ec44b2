package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"floatbook/internal/auth"
	"floatbook/internal/balance"
	"floatbook/internal/commission"
	"floatbook/internal/handler"
	"floatbook/internal/kiosk"
	"floatbook/internal/ledger"
	"floatbook/internal/middleware"
	"floatbook/internal/notification"
	"floatbook/internal/report"
	"floatbook/internal/repository/postgres"
	"floatbook/pkg/cache"
	"floatbook/pkg/config"
	"floatbook/pkg/logger"
	"floatbook/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("floatbook-api")

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting Floatbook API", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Redis connected", nil)

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	kioskRepo := postgres.NewKioskRepository(db)
	networkRepo := postgres.NewNetworkRepository(db)
	rateRepo := postgres.NewCommissionRateRepository(db)
	txRepo := postgres.NewTransactionRepository(db)
	balanceRepo := postgres.NewDailyBalanceRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Services. The resolver reads tiers through the Redis cache; rate-table
	// writes invalidate it.
	cachedRates := commission.NewCachedRateSource(rateRepo, cache.NewFromClient(redisClient), cfg.Report.RateCacheTTL, log)
	resolver := commission.NewResolver(cachedRates)

	authService := auth.NewService(userRepo, cache.NewFromClient(redisClient), cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshExpiration, log)
	notificationService := notification.NewService(notificationRepo, kioskRepo, log)
	kioskService := kiosk.NewService(kioskRepo, userRepo, notificationService, log)
	commissionService := commission.NewService(rateRepo, cachedRates, log)
	ledgerService := ledger.NewService(txRepo, resolver, log)
	balanceService := balance.NewService(balanceRepo, txRepo, networkRepo, log)
	reportService := report.NewService(reportRepo, txRepo, balanceService, kioskRepo, networkRepo, notificationService, cfg.Report.LowBalanceThreshold, log)

	// Handlers
	val := validator.New()
	authHandler := handler.NewAuthHandler(authService, val, log)
	kioskHandler := handler.NewKioskHandler(kioskService, val, log)
	txHandler := handler.NewTransactionHandler(ledgerService, kioskService, val, log)
	balanceHandler := handler.NewBalanceHandler(balanceService, kioskService, val, log)
	rateHandler := handler.NewRateHandler(commissionService, networkRepo, kioskService, cfg.Admin.Emails, val, log)
	reportHandler := handler.NewReportHandler(reportService, kioskService, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)

	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.NewRateLimiter(redisClient, 120, time.Minute).Limit)

	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ready", readyCheck(db)).Methods("GET")

	public := r.PathPrefix("/api/v1/auth").Subrouter()
	public.HandleFunc("/register", authHandler.Register).Methods("POST")
	public.HandleFunc("/login", authHandler.Login).Methods("POST")
	public.HandleFunc("/refresh", authHandler.Refresh).Methods("POST")

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	idem := middleware.NewIdempotencyMiddleware(redisClient, 24*time.Hour)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.Use(middleware.NewRateLimiter(redisClient, 80, time.Minute).Limit)
	api.Use(idem.Require)

	api.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	api.HandleFunc("/kiosks", kioskHandler.Create).Methods("POST")
	api.HandleFunc("/kiosks", kioskHandler.List).Methods("GET")
	api.HandleFunc("/kiosks/by-slug/{slug}", kioskHandler.GetBySlug).Methods("GET")
	api.HandleFunc("/kiosks/{kioskID}", kioskHandler.Get).Methods("GET")
	api.HandleFunc("/kiosks/{kioskID}", kioskHandler.Update).Methods("PATCH")
	api.HandleFunc("/kiosks/{kioskID}/members", kioskHandler.InviteMember).Methods("POST")
	api.HandleFunc("/kiosks/{kioskID}/members", kioskHandler.ListMembers).Methods("GET")
	api.HandleFunc("/kiosks/{kioskID}/members/{userID}", kioskHandler.RemoveMember).Methods("DELETE")

	api.HandleFunc("/transactions", txHandler.Record).Methods("POST")
	api.HandleFunc("/transactions/{id}", txHandler.Get).Methods("GET")
	api.HandleFunc("/transactions/{id}", txHandler.Update).Methods("PATCH")
	api.HandleFunc("/transactions/{id}", txHandler.Delete).Methods("DELETE")
	api.HandleFunc("/kiosks/{kioskID}/transactions", txHandler.List).Methods("GET")
	api.HandleFunc("/kiosks/{kioskID}/customers", txHandler.SearchByCustomer).Methods("GET")

	api.HandleFunc("/kiosks/{kioskID}/day", balanceHandler.StartDay).Methods("POST")
	api.HandleFunc("/kiosks/{kioskID}/day/opening", balanceHandler.Opening).Methods("GET")
	api.HandleFunc("/kiosks/{kioskID}/day/summary", balanceHandler.Summary).Methods("GET")

	api.HandleFunc("/networks", rateHandler.ListNetworks).Methods("GET")
	api.HandleFunc("/networks/{networkID}/rates", rateHandler.ListNetworkRates).Methods("GET")
	api.HandleFunc("/networks/{networkID}/rates", rateHandler.CreateNetworkRate).Methods("POST")
	api.HandleFunc("/networks/{networkID}/rates/{rateID}", rateHandler.UpdateNetworkRate).Methods("PATCH")
	api.HandleFunc("/networks/{networkID}/rates/{rateID}", rateHandler.DeactivateNetworkRate).Methods("DELETE")
	api.HandleFunc("/kiosks/{kioskID}/agent-rates", rateHandler.ListAgentRates).Methods("GET")
	api.HandleFunc("/kiosks/{kioskID}/agent-rates", rateHandler.UpsertAgentRate).Methods("PUT")
	api.HandleFunc("/kiosks/{kioskID}/agent-rates/{rateID}", rateHandler.DeactivateAgentRate).Methods("DELETE")

	api.HandleFunc("/kiosks/{kioskID}/report", reportHandler.Daily).Methods("GET")
	api.HandleFunc("/kiosks/{kioskID}/report/history", reportHandler.History).Methods("GET")

	api.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods("POST")
	api.HandleFunc("/notifications/read-all", notificationHandler.MarkAllRead).Methods("POST")

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Floatbook API started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Stopped gracefully", nil)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	_ = r
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"floatbook"}`))
}

func readyCheck(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready","reason":"database unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready","service":"floatbook"}`))
	}
}
