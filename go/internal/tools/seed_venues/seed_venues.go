package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/padelhub/gamenight/go/internal/dbconfig"
	"gopkg.in/yaml.v3"
)

// Venue mirrors one entry of the venues file
type Venue struct {
	ID      uuid.UUID `yaml:"id"`
	Name    string    `yaml:"name"`
	Address *string   `yaml:"address"`
	LogoURL *string   `yaml:"logo_url"`
	Courts  []Court   `yaml:"courts"`
}

type Court struct {
	ID    uuid.UUID `yaml:"id"`
	Label string    `yaml:"label"`
}

func main() {
	path := flag.String("file", "go/internal/assets/venues.yaml", "venues YAML file")
	flag.Parse()

	// 1) Load the YAML snapshot
	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read venues: %v\n", err)
		os.Exit(1)
	}
	var venues []Venue
	if err := yaml.Unmarshal(data, &venues); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal venues: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert each venue with its courts in one transaction
	var (
		total    = len(venues)
		inserted int
		updated  int
		errs     int
	)
	for _, v := range venues {
		if v.ID == uuid.Nil {
			fmt.Fprintf(os.Stderr, "venue %q has no id, skipping\n", v.Name)
			errs++
			continue
		}
		var created bool
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if err := tx.QueryRow(ctx, `
                INSERT INTO venues (id, name, address, logo_url)
                VALUES ($1, $2, $3, $4)
                ON CONFLICT (id) DO UPDATE
                SET name = EXCLUDED.name, address = EXCLUDED.address,
                    logo_url = EXCLUDED.logo_url, updated_at = now()
                RETURNING (xmax = 0)
            `, v.ID, v.Name, v.Address, v.LogoURL).Scan(&created); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `DELETE FROM courts WHERE venue_id = $1`, v.ID); err != nil {
				return err
			}
			batch := &pgx.Batch{}
			for i, c := range v.Courts {
				id := c.ID
				if id == uuid.Nil {
					id = uuid.NewSHA1(v.ID, []byte(c.Label))
				}
				batch.Queue(`INSERT INTO courts (id, venue_id, label, sort_order) VALUES ($1, $2, $3, $4)`,
					id, v.ID, c.Label, i)
			}
			return tx.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error seeding venue %s: %v\n", v.ID, err)
			errs++
			continue
		}
		if created {
			inserted++
		} else {
			updated++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Venues seed complete: %d total, %d inserted, %d updated, %d errors\n",
		total, inserted, updated, errs,
	)
}
