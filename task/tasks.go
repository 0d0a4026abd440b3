package task

import (
	"context"
	"log/slog"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/config"
	"github.com/angas/tariffsaver-go/database"
	"github.com/angas/tariffsaver-go/types"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	FetchPricesTask func()
	FinalizeTask    func()
	PersistTask     func()
	MaintenanceTask func()
}

// NewTasks wires the scheduled work: the daily tariff fetch, the quarter-hour
// slot finalization, the dirty-flag-driven persist and nightly maintenance.
// onBooked is invoked with the number of newly booked slots so the caller can
// push updates to clients.
func NewTasks(
	db *database.Database,
	store *accounting.Store,
	provider types.TariffProvider,
	cnfg *config.AppConfig,
	onBooked func(int),
) *Tasks {
	logger := slog.Default().With("module", "tasks")

	persist := NewPersistTask(logger.With(slog.String("task", "persist")), db, store, cnfg.InstanceID)

	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		FetchPricesTask: NewFetchPricesTask(logger.With(slog.String("task", "fetch_prices")), store, provider, persist),
		FinalizeTask:    NewFinalizeTask(logger.With(slog.String("task", "finalize")), store, persist, onBooked),
		PersistTask:     persist,
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

func (t *Tasks) Run() {
	_, err := t.cron.AddFunc(t.cnfg.Tariff.GetFetchCron(), t.FetchPricesTask)
	if err != nil {
		panic(err)
	}
	// One minute past each quarter boundary so the just-closed window clears
	// the finalizer's safety margin.
	_, err = t.cron.AddFunc("1,16,31,46 * * * *", t.FinalizeTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc("* * * * *", t.PersistTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc("30 2 * * *", t.MaintenanceTask)
	if err != nil {
		panic(err)
	}
	t.cron.Start()
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
