package services

import (
	"auction-settlement/internal/domain"
	"auction-settlement/pkg/logger"
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

type CronSettlementScheduler struct {
	cron           *cron.Cron
	closer         domain.BatchRunner
	payments       domain.BatchRunner
	leaderElection domain.LeaderElection
	instanceID     string
	schedule       SettlementSchedule
	log            logger.Logger
}

type SettlementSchedule struct {
	Close      string
	Payment    string
	RunTimeout time.Duration
	Location   *time.Location
}

func NewCronSettlementScheduler(closer, payments domain.BatchRunner, leaderElection domain.LeaderElection,
	instanceID string, schedule SettlementSchedule, log logger.Logger) *CronSettlementScheduler {
	if schedule.Location == nil {
		schedule.Location = time.UTC
	}
	if schedule.RunTimeout <= 0 {
		schedule.RunTimeout = 5 * time.Minute
	}
	cronLog := cronLogger{log: log}
	return &CronSettlementScheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(schedule.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		closer:         closer,
		payments:       payments,
		leaderElection: leaderElection,
		instanceID:     instanceID,
		schedule:       schedule,
		log:            log,
	}
}

// Register adds both passes to the cron table without starting it.
func (s *CronSettlementScheduler) Register(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule.Close, func() {
		s.runPass(ctx, domain.PassClosing, s.closer)
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.schedule.Payment, func() {
		s.runPass(ctx, domain.PassPayment, s.payments)
	}); err != nil {
		return err
	}
	return nil
}

func (s *CronSettlementScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting settlement scheduler",
		"close_schedule", s.schedule.Close, "payment_schedule", s.schedule.Payment)

	if err := s.Register(ctx); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CronSettlementScheduler) Stop() error {
	s.log.Info("Stopping settlement scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// runPass only runs on the leader so that at most one instance settles at a time.
func (s *CronSettlementScheduler) runPass(ctx context.Context, pass domain.Pass, runner domain.BatchRunner) {
	isLeader, err := s.leaderElection.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Failed to check leadership", "pass", pass, "error", err)
		return
	}
	if !isLeader {
		s.log.Debug("Not leader, skipping pass", "pass", pass, "instance_id", s.instanceID)
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.schedule.RunTimeout)
	defer cancel()

	report, err := runner.Run(runCtx)
	if err != nil {
		s.log.Error("Settlement pass failed", "pass", pass, "error", err)
		return
	}

	s.log.Info("Settlement pass completed",
		"pass", pass,
		"succeeded", report.Succeeded,
		"failed", len(report.Failures()),
		"duration", report.FinishedAt.Sub(report.StartedAt))
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
