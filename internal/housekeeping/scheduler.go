// Package housekeeping runs the engine's scheduled maintenance jobs —
// daily risk-counter reset and history-buffer size reporting — outside
// the tick loop. Grounded on the pack's aristath-sentinel
// internal/scheduler.Scheduler (robfig/cron/v3, named Job interface,
// Start/Stop wrapping cron.Cron) adapted to this domain's two jobs.
package housekeeping

import (
	"time"

	"github.com/robfig/cron/v3"

	"goldcore/internal/persistence"
	"goldcore/internal/riskgate"
	"goldcore/internal/telemetry"
)

// Job is one scheduled unit of work.
type Job interface {
	Run()
	Name() string
}

// Scheduler wraps a cron.Cron with the engine's logging conventions.
type Scheduler struct {
	cron *cron.Cron
	log  *telemetry.Logger
}

// New builds a Scheduler. log may be nil to use telemetry.Default().
func New(log *telemetry.Logger) *Scheduler {
	if log == nil {
		log = telemetry.Default()
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.WithComponent("housekeeping"),
	}
}

// Start begins running registered jobs on their schedules.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for any in-flight job to finish, then halts the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// AddJob registers job on the given cron spec (with-seconds syntax,
// e.g. "0 0 0 * * *" for daily at midnight).
func (s *Scheduler) AddJob(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Debug("housekeeping job starting", "job", job.Name())
		job.Run()
		s.log.Debug("housekeeping job finished", "job", job.Name())
	})
	return err
}

// DailyCounterReset force-resets the RiskGate's daily counters at
// midnight, a belt-and-suspenders companion to Gate's own
// checkDayReset-on-access — useful when the engine is idle overnight
// and no Admit/RecordTradeOutcome call would otherwise trigger it.
type DailyCounterReset struct {
	Gate *riskgate.Gate
}

func (j DailyCounterReset) Name() string { return "daily_counter_reset" }
func (j DailyCounterReset) Run()         { j.Gate.ResetDailyCounters() }

// HistoryCompaction is a no-op beyond logging: the persistence.Store's
// ring buffers are already self-bounding on every append, so this job
// only exists to surface buffer sizes to operators on a cadence
// independent of trading activity.
type HistoryCompaction struct {
	Store *persistence.Store
	Log   *telemetry.Logger
}

func (j HistoryCompaction) Name() string { return "history_compaction" }
func (j HistoryCompaction) Run() {
	if j.Store == nil {
		return
	}
	log := j.Log
	if log == nil {
		log = telemetry.Default()
	}
	log.Info("history buffer sizes",
		"capital_samples", len(j.Store.CapitalHistory()),
		"role_events", len(j.Store.RoleHistory()),
		"mode_changes", len(j.Store.ModeChanges()),
		"at", time.Now().Format(time.RFC3339),
	)
}
