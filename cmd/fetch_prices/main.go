package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/config"
	"github.com/angas/tariffsaver-go/database"
	"github.com/angas/tariffsaver-go/ekz"
	"github.com/angas/tariffsaver-go/task"
	"github.com/lmittmann/tint"
)

// One-shot tariff fetch, useful for backfilling the price table or testing
// API access without running the daemon.
func main() {
	w := os.Stdout
	logger := slog.New(tint.NewHandler(w, nil))
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339Nano,
		}),
	))

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	db, err := database.New(context.Background(), cnfg.Database.Path)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	store := accounting.NewStore(accounting.Retention{
		SampleDays: cnfg.Retention.GetSampleDays(),
		PriceDays:  cnfg.Retention.GetPriceDays(),
		BookedDays: cnfg.Retention.GetBookedDays(),
	})

	row, err := db.GetStoreBlob(context.Background(), cnfg.InstanceID)
	if err != nil {
		panic(err)
	}
	if !row.IsZero() {
		snap, err := accounting.DecodeSnapshot(row.Payload)
		if err != nil {
			panic(err)
		}
		store.LoadSnapshot(snap)
	}

	persist := task.NewPersistTask(logger, db, store, cnfg.InstanceID)
	provider := ekz.New(cnfg.Tariff.Name, cnfg.Tariff.BaselineName)
	task.NewFetchPricesTask(logger, store, provider, persist)()
}
