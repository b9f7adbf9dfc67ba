package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/backend-go/internal/artifacts"
	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

func newCadenceFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "cadence",
		Usage: "Bucket cadence: day, week, month or year",
		Value: "day",
	}
}

func newHorizonFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:  "horizon",
		Usage: "Forecast horizon in buckets (0 uses the cadence default)",
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "backtest",
		Usage: "Evaluate forecast engines against historical demand",
		Commands: []*cli.Command{
			{
				Name:  "evaluate",
				Usage: "Rolling-origin backtest of one engine on one product",
				Flags: []cli.Flag{
					newCadenceFlag(),
					newHorizonFlag(),
					&cli.StringFlag{Name: "product", Usage: "Product code", Required: true},
					&cli.StringFlag{Name: "engine", Usage: "Engine to evaluate", Value: "boosted"},
				},
				Action: runEvaluate,
			},
			{
				Name:  "choose",
				Usage: "Pick the better engine for a product by backtest MAE",
				Flags: []cli.Flag{
					newCadenceFlag(),
					newHorizonFlag(),
					&cli.StringFlag{Name: "product", Usage: "Product code", Required: true},
				},
				Action: runChoose,
			},
			{
				Name:  "batch",
				Usage: "Evaluate the decision pipeline for every known product",
				Flags: []cli.Flag{
					newCadenceFlag(),
				},
				Action: runBatch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildServices() (*service.ForecastService, *service.BatchService, func(), error) {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	metaStore, err := artifacts.NewModelMetaStore(cfg.Artifacts)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("artifact store unavailable, continuing without it")
		metaStore = artifacts.NewNoopModelMetaStore()
	}

	salesRepo := postgres.NewSalesRepository(db)
	inventoryRepo := postgres.NewInventoryRepository(db)

	// CLI runs are one-shot; caching would only mask results.
	forecastService := service.NewForecastService(salesRepo, inventoryRepo, cache.NewNoopForecastCache(), metaStore, cfg)
	batchService := service.NewBatchService(salesRepo, forecastService, cfg.Forecast.BatchWorkers)

	return forecastService, batchService, func() { db.Close() }, nil
}

func parseCadence(c *cli.Context) (domain.Cadence, error) {
	return domain.ParseCadence(c.String("cadence"))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runEvaluate(c *cli.Context) error {
	cadence, err := parseCadence(c)
	if err != nil {
		return err
	}

	svc, _, closeDB, err := buildServices()
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := svc.Backtest(c.Context, c.String("product"), cadence, c.String("engine"), c.Int("horizon"))
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runChoose(c *cli.Context) error {
	cadence, err := parseCadence(c)
	if err != nil {
		return err
	}

	svc, _, closeDB, err := buildServices()
	if err != nil {
		return err
	}
	defer closeDB()

	kind, err := svc.ChooseEngine(c.Context, c.String("product"), cadence, c.Int("horizon"))
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"product_code": c.String("product"),
		"engine":       string(kind),
	})
}

func runBatch(c *cli.Context) error {
	cadence, err := parseCadence(c)
	if err != nil {
		return err
	}

	_, batch, closeDB, err := buildServices()
	if err != nil {
		return err
	}
	defer closeDB()

	summary, err := batch.EvaluateAll(c.Context, cadence, service.PolicyOverrides{})
	if err != nil {
		return err
	}
	return printJSON(summary)
}
