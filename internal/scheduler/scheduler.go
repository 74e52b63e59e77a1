package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"tably/internal/services"
)

// Service runs the daily subscription sweep on a fixed interval. The same
// sweep is reachable on demand through the admin debug endpoint, so
// time-based transitions can be tested without waiting for the ticker.
type Service struct {
	lifecycle services.LifecycleServiceInterface
	interval  time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewService(lifecycle services.LifecycleServiceInterface, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Service{
		lifecycle: lifecycle,
		interval:  interval,
		stop:      make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is done. Run it in a goroutine.
func (s *Service) Start(ctx context.Context) {

	// Run immediately on start
	s.run()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.run()
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Service) run() {
	log.Println("Running subscription lifecycle sweep...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := s.lifecycle.RunDailyCheck(ctx)
	if err != nil {
		log.Printf("Error running lifecycle sweep: %v", err)
		return
	}

	log.Printf("Lifecycle sweep completed, %d subscription(s) transitioned", n)
}
