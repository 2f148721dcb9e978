package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/padelhub/gamenight/go/internal/dbconfig"
)

const defaultRating = 1500

// Player mirrors one entry of the players file. A missing rating seeds the default.
type Player struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Rating      *float64  `json:"rating"`
	Status      string    `json:"status"`
}

func main() {
	path := flag.String("file", "go/internal/assets/players.json", "players JSON file")
	flag.Parse()
	ctx := context.Background()

	// 1) Load players.json
	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read players: %v\n", err)
		os.Exit(1)
	}
	var players []Player
	if err := json.Unmarshal(data, &players); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal players: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Seed players, keeping ratings already earned
	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		rating := float64(defaultRating)
		if p.Rating != nil {
			rating = *p.Rating
		}
		status := p.Status
		if status == "" {
			status = "ACTIVE"
		}
		if p.UserID == uuid.Nil {
			p.UserID = p.ID
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO players (id, user_id, display_name, rating, status)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (id) DO NOTHING
        `, p.ID, p.UserID, p.DisplayName, rating, status)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting player %s: %v\n", p.ID, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
