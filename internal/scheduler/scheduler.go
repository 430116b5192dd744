package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/lingoprogress/internal/progress"
	"github.com/example/lingoprogress/pkg/models"
)

// Default job settings
const (
	DefaultCheckpointInterval = 30 * time.Second
	DefaultReminderTime       = "18:00"
)

// Store is the part of the progress store the jobs use
type Store interface {
	Snapshot() models.UserProgress
	Persist(ctx context.Context) error
}

// Config holds job timing
type Config struct {
	CheckpointInterval time.Duration
	ReminderTime       string // HH:MM in Location
	Location           *time.Location
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Store
	notifier  progress.Notifier
	log       *zap.Logger
	cfg       Config
	now       func() time.Time
}

// New creates a new scheduler instance
func New(store Store, notifier progress.Notifier, cfg Config, log *zap.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = DefaultCheckpointInterval
	}
	if cfg.ReminderTime == "" {
		cfg.ReminderTime = DefaultReminderTime
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		store:     store,
		notifier:  notifier,
		log:       log.Named("scheduler"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.cfg.CheckpointInterval).Do(s.checkpoint); err != nil {
		return fmt.Errorf("failed to schedule checkpoint: %w", err)
	}
	if _, err := s.scheduler.Every(1).Day().At(s.cfg.ReminderTime).Do(s.remindStreak); err != nil {
		return fmt.Errorf("failed to schedule streak reminder: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.log.Info("scheduler started",
		zap.Duration("checkpoint_interval", s.cfg.CheckpointInterval),
		zap.String("reminder_time", s.cfg.ReminderTime),
	)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkpoint rewrites the aggregate so an earlier failed save is retried
func (s *Scheduler) checkpoint() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.Persist(ctx); err != nil {
		s.log.Warn("checkpoint failed", zap.Error(err))
	}
}

// remindStreak nudges a learner who was active yesterday but not yet today
func (s *Scheduler) remindStreak() {
	snap := s.store.Snapshot()
	if !progress.NeedsStreakReminder(snap, s.now(), s.cfg.Location) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	body := fmt.Sprintf("Your %d-day streak ends at midnight. One lesson keeps it going!", snap.Streak)
	if err := s.notifier.NotifyAchievement(ctx, "🔥 Keep your streak alive", body); err != nil {
		s.log.Warn("failed to send streak reminder", zap.Int("streak", snap.Streak), zap.Error(err))
		return
	}
	s.log.Info("streak reminder sent", zap.Int("streak", snap.Streak))
}
