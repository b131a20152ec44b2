// Seeding tool for reference data: networks, their commission tables and a
// default owner account for local development.
//
// Usage (env overrides):
//
//	SEED_EMAIL=owner@example.com SEED_PASSWORD=Password123
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"floatbook/internal/commission"
	"floatbook/internal/domain"
	"floatbook/internal/repository/postgres"
	"floatbook/pkg/config"
	"floatbook/pkg/errors"
	"floatbook/pkg/logger"
)

type tier struct {
	min, max int64
	kind     domain.RateKind
	value    string
}

// The standard Cameroon agent commission tables. MTN and Orange share the
// same tiers; Express Union and Yoomee start with empty tables and rates are
// entered through the admin API.
var standardTiers = []tier{
	{100, 5000, domain.RateKindFixed, "50"},
	{5001, 10000, domain.RateKindFixed, "100"},
	{10001, 50000, domain.RateKindFixed, "150"},
	{50001, 500000, domain.RateKindPercentage, "0.3"},
}

var networks = []struct {
	code, name, color string
	tiers             []tier
}{
	{"MTN", "MTN Mobile Money", "#FFCC00", standardTiers},
	{"OM", "Orange Money", "#FF6600", standardTiers},
	{"EU", "Express Union", "#0066CC", nil},
	{"YOOMEE", "Yoomee Money", "#00A651", nil},
}

func main() {
	_ = godotenv.Load()

	log := logger.New("seed")

	cfg := config.Load()
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	ctx := context.Background()
	networkRepo := postgres.NewNetworkRepository(db)
	rateRepo := postgres.NewCommissionRateRepository(db)
	userRepo := postgres.NewUserRepository(db)
	rateService := commission.NewService(rateRepo, nil, log)

	for _, n := range networks {
		ensureNetwork(ctx, networkRepo, rateService, log, n.code, n.name, n.color, n.tiers)
	}

	email := getenv("SEED_EMAIL", "owner@example.com")
	password := getenv("SEED_PASSWORD", "Password123")
	ensureUser(ctx, userRepo, log, email, password, getenv("SEED_NAME", "Kiosk Owner"))

	fmt.Println("OK: networks, rates and default user seeded")
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func ensureNetwork(ctx context.Context, repo *postgres.NetworkRepository, rates *commission.Service, log logger.Logger, code, name, color string, tiers []tier) {
	existing, err := repo.FindByCode(ctx, code)
	if err == nil {
		log.Info("Network already seeded", map[string]interface{}{"code": code, "id": existing.ID})
		return
	}
	if !errors.Is(err, errors.ErrNetworkNotFound) {
		log.Fatal("FindByCode failed", map[string]interface{}{"error": err.Error()})
	}

	network := &domain.Network{
		ID:        uuid.New(),
		Code:      code,
		Name:      name,
		Color:     color,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, network); err != nil {
		log.Fatal("Failed to create network", map[string]interface{}{"code": code, "error": err.Error()})
	}

	for _, t := range tiers {
		value, err := decimal.NewFromString(t.value)
		if err != nil {
			log.Fatal("Bad tier value", map[string]interface{}{"value": t.value})
		}
		_, err = rates.CreateRate(ctx, &commission.RateRequest{
			NetworkID: network.ID,
			MinAmount: decimal.NewFromInt(t.min),
			MaxAmount: decimal.NewFromInt(t.max),
			RateKind:  t.kind,
			RateValue: value,
		})
		if err != nil {
			log.Fatal("Failed to create rate", map[string]interface{}{"code": code, "error": err.Error()})
		}
	}

	log.Info("Network seeded", map[string]interface{}{"code": code, "tiers": len(tiers)})
}

func ensureUser(ctx context.Context, repo *postgres.UserRepository, log logger.Logger, email, password, name string) {
	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		log.Fatal("ExistsByEmail failed", map[string]interface{}{"error": err.Error()})
	}
	if exists {
		log.Info("User already seeded", map[string]interface{}{"email": email})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Hash failed", map[string]interface{}{"error": err.Error()})
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  name,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, user); err != nil {
		log.Fatal("Failed to create user", map[string]interface{}{"error": err.Error()})
	}

	log.Info("User seeded", map[string]interface{}{"email": email})
}
