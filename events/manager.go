package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/signet-id/signet/models"
)

type Payload = map[string]any

// Manager owns the registry's notification stream. Event rows are
// written inside the mutating transaction (Record) and fanned out to
// live subscribers only after the transaction commits (Publish), so a
// subscriber can never observe an event for a write that rolled back.
type Manager struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[uint64]chan *models.Event
	nextID uint64
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		logger: logger.With("component", "events"),
		subs:   map[uint64]chan *models.Event{},
	}
}

// Record appends an event row in the caller's transaction and returns
// it for publishing after commit.
func (m *Manager) Record(tx *gorm.DB, kind string, payload Payload) (*models.Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	evt := models.Event{
		Kind:      kind,
		Payload:   b,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&evt).Error; err != nil {
		return nil, err
	}

	return &evt, nil
}

// Publish delivers committed events to live subscribers. Nil events are
// skipped so callers can pass through whatever their transaction filled
// in. Subscribers that cannot keep up are dropped.
func (m *Manager) Publish(evts ...*models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, evt := range evts {
		if evt == nil {
			continue
		}
		for id, ch := range m.subs {
			select {
			case ch <- evt:
			default:
				m.logger.Warn("dropping slow event subscriber", "subscriber", id)
				delete(m.subs, id)
				close(ch)
			}
		}
	}
}

// Subscribe registers a live listener. The returned channel is closed
// when the subscriber is dropped or unsubscribed.
func (m *Manager) Subscribe() (uint64, <-chan *models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	ch := make(chan *models.Event, 512)
	m.subs[id] = ch

	return id, ch
}

func (m *Manager) Unsubscribe(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.subs[id]; ok {
		delete(m.subs, id)
		close(ch)
	}
}
