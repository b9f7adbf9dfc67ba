package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/ingest"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Usage:    "CSV file to load",
		Required: true,
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Load sales history and inventory snapshots into the database",
		Commands: []*cli.Command{
			{
				Name:   "sales",
				Usage:  "Load a sales history CSV (move_date, product_code, qty_sold)",
				Flags:  []cli.Flag{newDBURLFlag(), newFileFlag()},
				Action: seedSales,
			},
			{
				Name:   "inventory",
				Usage:  "Load an inventory snapshot CSV (product_code, available_stock)",
				Flags:  []cli.Flag{newDBURLFlag(), newFileFlag()},
				Action: seedInventory,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDB(c *cli.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func seedSales(c *cli.Context) error {
	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	observations, err := ingest.ReadSales(file)
	if err != nil {
		return fmt.Errorf("failed to parse sales csv: %w", err)
	}
	if len(observations) == 0 {
		return fmt.Errorf("no usable sales rows in %s", c.String("file"))
	}

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	inserted, err := insertSales(c.Context, db, observations)
	if err != nil {
		return err
	}

	log.Printf("loaded %d sales rows from %s", inserted, c.String("file"))
	return nil
}

func insertSales(ctx context.Context, db *sql.DB, observations []domain.SalesObservation) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sales_history (product_code, move_date, qty_sold, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_code, move_date)
		DO UPDATE SET qty_sold = EXCLUDED.qty_sold, updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, obs := range observations {
		if _, err := stmt.ExecContext(ctx, obs.ProductCode, obs.MoveDate, obs.QtySold, now); err != nil {
			return 0, fmt.Errorf("failed to insert row for %s: %w", obs.ProductCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(observations), nil
}

func seedInventory(c *cli.Context) error {
	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	snapshots, err := ingest.ReadInventory(file, time.Now())
	if err != nil {
		return fmt.Errorf("failed to parse inventory csv: %w", err)
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no usable inventory rows in %s", c.String("file"))
	}

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(c.Context, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(c.Context, `
		INSERT INTO inventory_snapshots (product_code, location, available_stock, snapshot_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_code, location, snapshot_date)
		DO UPDATE SET available_stock = EXCLUDED.available_stock, updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, snap := range snapshots {
		if _, err := stmt.ExecContext(c.Context, snap.ProductCode, snap.Location, snap.AvailableStock, snap.SnapshotDate, now); err != nil {
			return fmt.Errorf("failed to insert snapshot for %s: %w", snap.ProductCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.Printf("loaded %d inventory snapshots from %s", len(snapshots), c.String("file"))
	return nil
}
