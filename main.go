package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/config"
	"github.com/angas/tariffsaver-go/database"
	"github.com/angas/tariffsaver-go/ekz"
	"github.com/angas/tariffsaver-go/logging"
	"github.com/angas/tariffsaver-go/meter"
	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/task"
	"github.com/angas/tariffsaver-go/www"
	"github.com/lmittmann/tint"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := slots.SetLocalTimezone(cnfg.Gui.GetTimezone()); err != nil {
		panic(fmt.Sprintf("failed to set timezone: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("tariffsaver is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	store := accounting.NewStore(accounting.Retention{
		SampleDays: cnfg.Retention.GetSampleDays(),
		PriceDays:  cnfg.Retention.GetPriceDays(),
		BookedDays: cnfg.Retention.GetBookedDays(),
	})

	row, err := db.GetStoreBlob(ctx, cnfg.InstanceID)
	if err != nil {
		panic(fmt.Sprintf("failed to load store blob: %v", err))
	}
	if !row.IsZero() {
		snap, err := accounting.DecodeSnapshot(row.Payload)
		if err != nil {
			panic(fmt.Sprintf("failed to decode store blob: %v", err))
		}
		store.LoadSnapshot(snap)
		logger.Info("store restored",
			slog.String("instanceId", cnfg.InstanceID),
			slog.Int("samples", store.SampleCount()),
			slog.Int("booked", store.BookedCount()))
	}

	mtr := meter.New(
		cnfg.Mqtt.Host,
		cnfg.Mqtt.Port,
		cnfg.Mqtt.Username,
		cnfg.Mqtt.Password,
		cnfg.Mqtt.Topic)
	mtr.OnInactivity = func() {
		mtr.Disconnect()
		exitWithError(logger, fmt.Errorf("meter mqtt traffic is dead, terminating..."))
	}

	if isDevMode() {
		logger.Info("dev mode, skipping meter connection")
	} else {
		if err := mtr.Connect(); err != nil {
			panic(fmt.Sprintf("meter connection error: %v", err))
		}
		defer mtr.Disconnect()
	}

	provider := ekz.New(cnfg.Tariff.Name, cnfg.Tariff.BaselineName)

	server := www.StartServer(db, store, cnfg.Api, Version)

	tasks := task.NewTasks(db, store, provider, cnfg, server.BroadcastBooked)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		tasks.Run()
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("main context done")
				return
			case sig := <-sigCh:
				logger.Info("received signal", slog.Any("signal", sig))
				cancel()
			case reading := <-mtr.C:
				if !store.AddSample(reading.At, reading.KWH) {
					continue
				}
				if booked := store.FinalizeDueSlots(time.Now()); booked > 0 {
					tasks.PersistTask()
					server.BroadcastBooked(booked)
				}
			}
		}
	}()

	server.Run(ctx)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}

	time.Sleep(2 * time.Second)
	os.Exit(1)
}
