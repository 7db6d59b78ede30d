package services

import (
	"sync"
	"sync/atomic"
	"time"
)

type Metrics struct {
	logins        atomic.Int64
	loginFailures atomic.Int64
	eventsCreated atomic.Int64
	uploadsStored atomic.Int64
	listRequests  atomic.Int64
	serverErrors  atomic.Int64
	lastEventTime atomic.Int64

	startTime time.Time
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = NewMetrics()
	})
	return metricsInstance
}

func (m *Metrics) IncrementLogins() {
	m.logins.Add(1)
}

func (m *Metrics) IncrementLoginFailures() {
	m.loginFailures.Add(1)
}

func (m *Metrics) IncrementEventsCreated() {
	m.eventsCreated.Add(1)
	m.lastEventTime.Store(time.Now().Unix())
}

func (m *Metrics) IncrementUploadsStored() {
	m.uploadsStored.Add(1)
}

func (m *Metrics) IncrementListRequests() {
	m.listRequests.Add(1)
}

func (m *Metrics) IncrementServerErrors() {
	m.serverErrors.Add(1)
}

func (m *Metrics) GetEventsCreated() int64 {
	return m.eventsCreated.Load()
}

func (m *Metrics) GetServerErrors() int64 {
	return m.serverErrors.Load()
}

func (m *Metrics) GetLastEventTime() int64 {
	return m.lastEventTime.Load()
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Snapshot returns all counters in one map for the /metrics endpoint.
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"logins":          m.logins.Load(),
		"login_failures":  m.loginFailures.Load(),
		"events_created":  m.eventsCreated.Load(),
		"uploads_stored":  m.uploadsStored.Load(),
		"list_requests":   m.listRequests.Load(),
		"server_errors":   m.serverErrors.Load(),
		"last_event_time": m.lastEventTime.Load(),
		"uptime_sec":      int64(m.Uptime().Seconds()),
	}
}
