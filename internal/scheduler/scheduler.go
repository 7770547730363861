package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"feedcourier/internal/config"
	"feedcourier/internal/delivery"
	"feedcourier/internal/model"
	"feedcourier/internal/registry"
)

// Scheduler runs the periodic feed check pass: outbox preparation followed
// by dispatch, per approved feed. Feeds are independent failure domains; one
// feed's error never blocks another's pass.
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	config    *config.SchedulerConfig
	registry  *registry.Registry
	pipeline  *delivery.Pipeline
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, reg *registry.Registry, pipeline *delivery.Pipeline) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		config:   cfg,
		registry: reg,
		pipeline: pipeline,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		s.cron = cron.New(cron.WithSeconds())
	}

	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.checkFeeds)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()

	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// checkFeeds is the main processing function that runs periodically
func (s *Scheduler) checkFeeds() {
	s.wg.Add(1)
	defer s.wg.Done()

	logrus.Info("Starting feed check pass")
	startTime := time.Now()

	accountIDs, err := s.registry.ListAccountIDs()
	if err != nil {
		logrus.Errorf("Failed to list accounts: %v", err)
		return
	}

	for _, accountID := range accountIDs {
		select {
		case <-s.ctx.Done():
			logrus.Info("Feed check pass cancelled")
			return
		default:
		}

		if err := s.checkAccount(accountID); err != nil {
			logrus.Errorf("Failed to check account %s: %v", accountID, err)
		}
	}

	logrus.Infof("Feed check pass completed in %v", time.Since(startTime))
}

// checkAccount runs preparation and dispatch for every eligible feed of one
// account.
func (s *Scheduler) checkAccount(accountID string) error {
	account, err := s.registry.LoadAccount(accountID)
	if err != nil {
		return err
	}

	feedIDs, err := s.registry.ListFeedIDs(accountID)
	if err != nil {
		return err
	}

	for _, feedID := range feedIDs {
		if err := s.checkFeed(accountID, feedID, account); err != nil {
			logrus.Errorf("Failed to check feed %s/%s: %v", accountID, feedID, err)
		}
	}
	return nil
}

func (s *Scheduler) checkFeed(accountID, feedID string, account model.Account) error {
	feed, err := s.registry.LoadFeed(accountID, feedID)
	if err != nil {
		return err
	}
	if feed.Status != model.FeedStatusApproved || feed.Deleted {
		logrus.Debugf("Skipping feed %s/%s (status=%s, deleted=%v)", accountID, feedID, feed.Status, feed.Deleted)
		return nil
	}

	items, names, err := s.registry.LoadInboxItems(accountID, feedID)
	if err != nil {
		return err
	}

	if len(items) > 0 {
		subscribers, err := s.registry.LoadSubscribers(accountID, feedID)
		if err != nil {
			return err
		}

		inbox := make([]delivery.InboxItem, len(items))
		for i := range items {
			inbox[i] = delivery.InboxItem{Name: names[i], Item: items[i]}
		}
		if err := s.pipeline.Prepare(accountID, feedID, account, feed, inbox, subscribers); err != nil {
			return fmt.Errorf("preparation failed: %w", err)
		}
	}

	report, err := s.pipeline.Dispatch(s.ctx, accountID, feedID, feed)
	if err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}
	if report.Failed > 0 {
		logrus.Warnf("Dispatch for %s/%s left %d messages in the outbox for retry", accountID, feedID, report.Failed)
	}
	return nil
}

// RunOnce runs the feed check pass once (for manual triggering)
func (s *Scheduler) RunOnce() error {
	logrus.Info("Running feed check pass once")
	s.checkFeeds()
	return nil
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Prev
}

// Wait waits for the scheduler to stop
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
