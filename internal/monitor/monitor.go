package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/vannot/vannot/internal/cache"
	"github.com/vannot/vannot/internal/logging"
	"github.com/vannot/vannot/internal/notify"
	"github.com/vannot/vannot/internal/queue"
	"github.com/vannot/vannot/internal/service"
)

const sampleInterval = 10 * time.Second

// Dependencies holds everything the monitor samples.
type Dependencies struct {
	Influx     *InfluxManager
	LogManager *logging.SlogManager
	Cache      *cache.ContainerCache
	Jobs       *queue.Queue[service.IndexJob]
	Hub        *notify.Hub
}

// Service periodically samples server state and writes usage points.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample builds the current performance point.
func (s *Service) Sample() *influxdb2_write.Point {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	point := influxdb2_write.NewPointWithMeasurement("server_status").
		AddField("cached_containers", s.deps.Cache.Len()).
		AddField("pending_index_jobs", s.deps.Jobs.Len()).
		AddField("goroutines", runtime.NumGoroutine()).
		AddField("heap_alloc_bytes", int64(mem.HeapAlloc)).
		SetTime(time.Now())

	if s.deps.Hub != nil {
		point.AddField("websocket_clients", s.deps.Hub.ClientCount())
	}
	return point
}

// Start starts the sampling goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting usage monitor goroutine")

		ticker := time.NewTicker(sampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				point := s.Sample()
				if err := s.deps.Influx.WritePoint(context.Background(), "vannot_performance", point); err != nil {
					logger.Error("Error writing performance point", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
