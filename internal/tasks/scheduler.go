package tasks

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler enqueues a feeds:refresh task on a cron schedule. The refresh
// itself runs on whichever background worker picks the task up.
type Scheduler struct {
	cron   *cron.Cron
	client Enqueuer
}

// NewScheduler validates spec (standard five-field cron or descriptors like "@every 1h").
func NewScheduler(client Enqueuer, spec string) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), client: client}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	queued, err := EnqueueFeedsRefresh(context.Background(), s.client)
	switch {
	case err != nil:
		log.Printf("Scheduled feed refresh error: %v", err)
	case !queued:
		log.Println("Scheduled feed refresh skipped: previous refresh still pending")
	default:
		log.Println("Scheduled feed refresh enqueued")
	}
}

func (s *Scheduler) Start() {
	log.Printf("Starting feed refresh scheduler with %d entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running tick to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
