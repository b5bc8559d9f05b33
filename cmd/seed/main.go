// seed registers a demo user and a handful of locations in the local dev
// database, then prints a bearer token for them.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ErlanBelekov/locations-api/config"
	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/ErlanBelekov/locations-api/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/locations-api/internal/log"
	"github.com/ErlanBelekov/locations-api/internal/password"
	"github.com/ErlanBelekov/locations-api/internal/token"
	"github.com/ErlanBelekov/locations-api/internal/usecase"
	"github.com/ErlanBelekov/locations-api/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedName     = "Seed User"
	seedEmail    = "seed@test.local"
	seedPassword = "seed-password"
)

var locations = []validate.Input{
	{"name": "Downtown Office", "slug": "downtown-office", "zip": "10001"},
	{"name": "Harbor Warehouse", "slug": "harbor-warehouse", "zip": "10002"},
	{"name": "Airport Kiosk", "slug": "airport-kiosk", "zip": "11430"},
	{"name": "North Depot", "slug": "north-depot", "zip": "10463"},
	{"name": "Riverside Store", "slug": "riverside-store", "zip": "10027"},
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v (run: direnv allow)", err)
	}
	logger := ctxlog.New(cfg.Env, cfg.SlogLevel())

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		log.Fatalf("migrate: %v", err)
	}

	issuer := token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL(), cfg.RefreshTTL())
	authUsecase := usecase.NewAuthUsecase(postgres.NewUserRepository(pool), issuer, password.NewHasher(bcrypt.DefaultCost), logger)
	locationUsecase := usecase.NewLocationUsecase(postgres.NewLocationRepository(pool, logger))

	// Re-runs are idempotent: a taken email or slug surfaces as a validation error.
	var verr *domain.ValidationError
	_, err = authUsecase.Register(ctx, validate.Input{"name": seedName, "email": seedEmail, "password": seedPassword})
	if err != nil && !errors.As(err, &verr) {
		pool.Close()
		log.Fatalf("register seed user: %v", err)
	}

	var inserted, skipped int
	for _, in := range locations {
		_, err := locationUsecase.CreateLocation(ctx, in)
		switch {
		case err == nil:
			inserted++
		case errors.As(err, &verr):
			skipped++
		default:
			pool.Close()
			log.Fatalf("create location %v: %v", in["slug"], err)
		}
	}

	pair, err := authUsecase.Login(ctx, seedEmail, seedPassword)
	if err != nil {
		pool.Close()
		log.Fatalf("login seed user: %v", err)
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User:              %s / %s\n", seedEmail, seedPassword)
	fmt.Printf("  Locations created: %d  (skipped %d already existing)\n", inserted, skipped)
	fmt.Printf("  Token expires in:  %ds\n", pair.ExpiresIn)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Printf("    export JWT=%s\n", pair.AccessToken)
	fmt.Println("    curl -s http://localhost:8080/locations -H \"Authorization: Bearer $JWT\"")
	fmt.Println("    curl -s http://localhost:8080/auth/userinfo -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Println("  Refresh before the refresh window closes:")
	fmt.Println()
	fmt.Println("    curl -s -X POST http://localhost:8080/auth/refresh -H \"Authorization: Bearer $JWT\"")
}
