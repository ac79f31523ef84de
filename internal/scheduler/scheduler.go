package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Prefetcher warms the cache for one city.
type Prefetcher interface {
	Prefetch(ctx context.Context, city string, now time.Time) (bool, error)
}

// Scheduler periodically prefetches weather for configured cities.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Prefetcher
	cities    []string
	interval  time.Duration
	now       func() time.Time
}

// New creates a new Scheduler.
func New(cities []string, interval time.Duration, service Prefetcher) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		cities:    cities,
		interval:  interval,
		now:       time.Now,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		logrus.Info("scheduler: no prefetch cities configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	if _, err := s.scheduler.Every(interval).Do(s.RunOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	logrus.WithField("interval", interval.String()).Infof("scheduler: prefetching %d cities", len(s.cities))
	return nil
}

// RunOnce prefetches every configured city concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	now := s.now()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		fetched int
	)
	for _, city := range s.cities {
		wg.Add(1)
		go func(city string) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			ok, err := s.service.Prefetch(ctx, city, now)
			if err != nil {
				logrus.WithField("city", city).WithError(err).Warn("scheduler: prefetch failed")
				return
			}
			if ok {
				mu.Lock()
				fetched++
				mu.Unlock()
			}
		}(city)
	}
	wg.Wait()

	logrus.WithFields(logrus.Fields{
		"cities":  len(s.cities),
		"fetched": fetched,
	}).Debug("scheduler: prefetch run complete")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
