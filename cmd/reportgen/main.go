// Nightly batch that pre-generates yesterday's report for every active
// kiosk, so the morning dashboard load is a plain read and low balance
// alerts go out before opening hours. Run from cron.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"floatbook/internal/balance"
	"floatbook/internal/notification"
	"floatbook/internal/report"
	"floatbook/internal/repository/postgres"
	"floatbook/pkg/config"
	"floatbook/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	dateFlag := flag.String("date", "", "report date (YYYY-MM-DD), defaults to yesterday")
	flag.Parse()

	log := logger.New("reportgen")

	cfg := config.Load()
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}

	date := time.Now().UTC().AddDate(0, 0, -1)
	if *dateFlag != "" {
		parsed, err := time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Fatal("Invalid -date", map[string]interface{}{"value": *dateFlag})
		}
		date = parsed
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	kioskRepo := postgres.NewKioskRepository(db)
	networkRepo := postgres.NewNetworkRepository(db)
	txRepo := postgres.NewTransactionRepository(db)
	balanceRepo := postgres.NewDailyBalanceRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	balanceService := balance.NewService(balanceRepo, txRepo, networkRepo, log)
	notificationService := notification.NewService(notificationRepo, kioskRepo, log)
	reportService := report.NewService(reportRepo, txRepo, balanceService, kioskRepo, networkRepo, notificationService, cfg.Report.LowBalanceThreshold, log)

	ctx := context.Background()

	kiosks, err := kioskRepo.AllActive(ctx)
	if err != nil {
		log.Fatal("Failed to list kiosks", map[string]interface{}{"error": err.Error()})
	}

	generated, failed := 0, 0
	for _, k := range kiosks {
		if _, err := reportService.GetOrGenerate(ctx, k.ID, date); err != nil {
			failed++
			log.Error("Report generation failed", map[string]interface{}{
				"kiosk_id": k.ID,
				"error":    err.Error(),
			})
			continue
		}
		generated++
	}

	log.Info("Batch complete", map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"kiosks":    len(kiosks),
		"generated": generated,
		"failed":    failed,
	})
}
