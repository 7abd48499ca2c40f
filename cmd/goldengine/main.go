// Command goldengine wires the core engine (C1-C7) behind a dry-run
// MarketGateway and runs it until interrupted, grounded on the
// teacher's root main.go wiring order (load config, init logging,
// init event bus, construct components, wait on SIGINT/SIGTERM, drain
// on shutdown) — trimmed to this engine's own component set.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"goldcore/internal/capital"
	"goldcore/internal/closeplan"
	"goldcore/internal/config"
	"goldcore/internal/domain"
	"goldcore/internal/engine"
	"goldcore/internal/events"
	"goldcore/internal/gateway"
	"goldcore/internal/housekeeping"
	"goldcore/internal/persistence"
	"goldcore/internal/riskgate"
	"goldcore/internal/role"
	"goldcore/internal/session"
	sig "goldcore/internal/signal"
	"goldcore/internal/telemetry"
)

func main() {
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := telemetry.New(telemetry.Config{
		Level: cfg.Logging.Level, Output: cfg.Logging.Output,
		Component: "goldengine", JSONFormat: cfg.Logging.JSONFormat,
	})
	telemetry.SetDefault(logger)
	logger.Info("goldengine starting", "symbol", cfg.Trading.Symbol, "dry_run", cfg.Trading.DryRun)

	bus := events.NewBus()

	var store *persistence.Store
	if cfg.Persistence.Enabled {
		store, err = persistence.Open(cfg.Persistence.SQLitePath, cfg.Persistence.HistoryCapacity)
		if err != nil {
			logger.Error("failed to open persistence store, continuing in-memory only", err)
			store = persistence.NewMemory(cfg.Persistence.HistoryCapacity)
		}
	} else {
		store = persistence.NewMemory(cfg.Persistence.HistoryCapacity)
	}
	bus.Subscribe(events.EventRoleEvolved, func(e events.Event) {
		positionID, _ := e.Data["position_id"].(string)
		from, _ := e.Data["from"].(string)
		to, _ := e.Data["to"].(string)
		reason, _ := e.Data["reason"].(string)
		store.RecordRoleEvent(persistence.RoleEvent{
			At: e.Timestamp, PositionID: positionID,
			From: domain.Role(from), To: domain.Role(to), Reason: reason,
		})
	})

	tracker, err := capital.New(capital.Config{
		InitialCapital: decimal.NewFromFloat(cfg.CapitalManagement.InitialCapital),
		Zones: capital.ZoneShares{
			Safe:       decimal.NewFromFloat(cfg.CapitalManagement.SafeZonePercent),
			Growth:     decimal.NewFromFloat(cfg.CapitalManagement.GrowthZonePercent),
			Aggressive: decimal.NewFromFloat(cfg.CapitalManagement.AggressiveZonePercent),
		},
		ConservativeTrigger: cfg.CapitalManagement.ConservativeTrigger,
		EmergencyTrigger:    cfg.CapitalManagement.EmergencyTrigger,
	})
	if err != nil {
		log.Fatalf("failed to build capital tracker: %v", err)
	}

	roles := role.NewRegistry()
	sigEngine := sig.New(sig.DefaultConfig(), session.RealClock{})
	planner := closeplan.New(closeplan.DefaultConfig())
	gate := riskgate.New(riskgate.DefaultConfig(), nil)

	gw := gateway.NewMock(cfg.Trading.Symbol, decimal.NewFromInt(2000), decimal.NewFromFloat(cfg.CapitalManagement.InitialCapital))

	eng := engine.New(engine.DefaultConfig(cfg.Trading.Symbol), gw, tracker, roles, sigEngine, planner, gate, bus, logger)

	sched := housekeeping.New(logger)
	_ = sched.AddJob("0 0 0 * * *", housekeeping.DailyCounterReset{Gate: gate})
	_ = sched.AddJob("0 0 * * * *", housekeeping.HistoryCompaction{Store: store, Log: logger})
	sched.Start()

	eng.Start()
	logger.Info("goldengine running", "tick_interval", engine.DefaultConfig(cfg.Trading.Symbol).TickInterval.String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, draining")
	sched.Stop()
	eng.Stop()

	if store != nil {
		_ = store.Close()
	}

	logger.Info("goldengine stopped")
}
