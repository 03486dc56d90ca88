// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	businessflow "github.com/kairan-app/kairan/business_flow"
	"github.com/kairan-app/kairan/config"
)

// SummaryScheduler drives reaction digests on two independent timers: a
// periodic silence check and a fixed daily cron. Both funnel into the
// summary flow, whose idempotent aggregation makes simultaneous firing
// harmless.
type SummaryScheduler struct {
	summaries businessflow.SummaryFlow
	cfg       config.SummaryConfig
	logCfg    config.LoggingConfig
	logger    *log.Logger
	cron      *cron.Cron
	logWriter io.Closer
}

// NewSummaryScheduler creates a new summary scheduler
func NewSummaryScheduler(summaries businessflow.SummaryFlow, cfg config.SummaryConfig, logCfg config.LoggingConfig) *SummaryScheduler {
	s := &SummaryScheduler{
		summaries: summaries,
		cfg:       cfg,
		logCfg:    logCfg,
	}
	if s.cfg.CheckInterval <= 0 {
		s.cfg.CheckInterval = 5 * time.Minute
	}
	s.initLogger()
	return s
}

// initLogger configures a logger writing to both stdout and a rotating file
func (s *SummaryScheduler) initLogger() {
	logFile := s.logCfg.File
	if logFile == "" {
		logFile = filepath.Join("logs", "kairan.log")
	}
	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    s.logCfg.MaxSizeMB,
		MaxBackups: s.logCfg.MaxBackups,
		MaxAge:     s.logCfg.MaxAgeDays,
		Compress:   s.logCfg.Compress,
	}
	s.logWriter = rotator
	mw := io.MultiWriter(os.Stdout, rotator)
	// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
	s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Logger exposes the scheduler's logger so flows can share the rotating sink
func (s *SummaryScheduler) Logger() *log.Logger {
	return s.logger
}

// Start launches both timers in background goroutines and returns a stop
// function
func (s *SummaryScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.cfg.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()

	if s.cfg.DailyCron != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.cfg.DailyCron, func() {
			s.RunDaily(ctx)
		}); err != nil {
			s.logger.Printf("scheduler: invalid daily cron %q: %v", s.cfg.DailyCron, err)
		} else {
			s.cron.Start()
		}
	}

	return func() {
		cancel()
		if s.cron != nil {
			cronCtx := s.cron.Stop()
			<-cronCtx.Done()
		}
		if s.logWriter != nil {
			_ = s.logWriter.Close()
		}
	}
}

// Tick runs one silence check. Exported so tests can drive the scheduler
// without real timers.
func (s *SummaryScheduler) Tick(ctx context.Context) {
	result, err := s.summaries.RunIfQuiet(ctx)
	if err != nil {
		s.logger.Printf("scheduler: silence check failed: %v", err)
		return
	}
	if result.Sent {
		s.logger.Printf("scheduler: silence check sent digest covering %d reactions", result.ReactionCount)
	}
}

// RunDaily runs the unconditional daily summary
func (s *SummaryScheduler) RunDaily(ctx context.Context) {
	result, err := s.summaries.RunSummary(ctx)
	if err != nil {
		s.logger.Printf("scheduler: daily summary failed: %v", err)
		return
	}
	if result.Sent {
		s.logger.Printf("scheduler: daily summary sent covering %d reactions on %d messages",
			result.ReactionCount, result.MessagesCovered)
	} else {
		s.logger.Printf("scheduler: daily summary found nothing pending")
	}
}
