package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/api"
	"github.com/mvalverde/go-custody/internal/approval"
	"github.com/mvalverde/go-custody/internal/auth"
	"github.com/mvalverde/go-custody/internal/custody"
	"github.com/mvalverde/go-custody/internal/db"
	"github.com/mvalverde/go-custody/internal/ledger"
	"github.com/mvalverde/go-custody/internal/store"
)

func main() {
	cfg := db.LoadConfig()

	// Initialize a new Fiber app
	app := fiber.New()

	// Backing store: Postgres when DATABASE_URL is set, otherwise the
	// in-process store for local runs.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pool := db.NewConnection(cfg)
		defer pool.Close()

		pg := store.NewPostgres(pool)
		if err := pg.Migrate(context.Background()); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		st = pg
	} else {
		log.Printf("Warning: DATABASE_URL not set, using in-memory store")
		st = store.NewMemory()
	}

	operators := auth.NewOperators(cfg.OperatorSecret)

	cust, err := custody.NewService(st, cfg.CustodyKey, operators)
	if err != nil {
		log.Fatalf("Failed to initialize custody service: %v", err)
	}

	gate := auth.NewGate(st, cust, cfg.JWTSecret)
	led := ledger.NewService(st, gate, operators)
	eng := approval.NewEngine(st, operators)

	// Initialize the API routes
	api.InitializeRoutes(app, api.Deps{
		Store:     st,
		Gate:      gate,
		Operators: operators,
		Ledger:    led,
		Approval:  eng,
		Custody:   cust,
	})

	log.Fatal(app.Listen(cfg.ListenAddr))
}
