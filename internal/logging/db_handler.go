package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	batchSize     = 50
	flushInterval = 5 * time.Second
)

// DBHandler is an slog.Handler that batches ERROR+ records into a LogStore.
// Records are written by a single background loop; Stop drains the buffer.
type DBHandler struct {
	sink  *sink
	attrs []scopedAttr
	group string
}

// scopedAttr remembers the group that was open when the attr was added.
type scopedAttr struct {
	group string
	attr  slog.Attr
}

type sink struct {
	store    LogStore
	fallback *slog.Logger
	mu       sync.Mutex
	buffer   []models.SystemLog
	kick     chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// NewDBHandler starts the flush loop. Flush failures are reported on fallback,
// which must not route back into this handler.
func NewDBHandler(store LogStore, fallback *slog.Logger) *DBHandler {
	s := &sink{
		store:    store,
		fallback: fallback,
		buffer:   make([]models.SystemLog, 0, batchSize),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go s.loop(flushInterval)
	return &DBHandler{sink: s}
}

func (s *sink) loop(interval time.Duration) {
	defer close(s.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.kick:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *sink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, batchSize)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.SaveLogs(ctx, batch); err != nil {
		s.fallback.Error("failed to flush system logs", "error", err, "count", len(batch))
	}
}

func (s *sink) push(entry models.SystemLog) {
	s.mu.Lock()
	s.buffer = append(s.buffer, entry)
	full := len(s.buffer) >= batchSize
	s.mu.Unlock()

	if full {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// Stop flushes what is buffered and waits for the loop to exit.
func (h *DBHandler) Stop() {
	h.sink.once.Do(func() { close(h.sink.done) })
	<-h.sink.stopped
}

// Enabled only handles ERROR and above.
func (h *DBHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *DBHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   strings.Clone(record.Message),
	}

	extra := make(map[string]interface{})
	apply := func(group string, a slog.Attr) {
		if assignColumn(&entry, a) {
			return
		}
		key := a.Key
		if group != "" {
			key = group + "." + key
		}
		extra[key] = detach(a.Value.Resolve().Any())
	}
	for _, sa := range h.attrs {
		apply(sa.group, sa.attr)
	}
	record.Attrs(func(a slog.Attr) bool {
		apply(h.group, a)
		return true
	})

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.sink.push(entry)
	return nil
}

// detach copies strings so a buffered entry never aliases memory the caller
// reuses after Handle returns, such as fasthttp request buffers.
func detach(v any) any {
	if s, ok := v.(string); ok {
		return strings.Clone(s)
	}
	return v
}

// assignColumn maps the well-known attribute keys onto dedicated columns.
func assignColumn(entry *models.SystemLog, a slog.Attr) bool {
	v := a.Value.Resolve()
	switch a.Key {
	case "request_id":
		entry.RequestID = strings.Clone(v.String())
	case "user_id":
		s := strings.Clone(v.String())
		entry.UserID = &s
	case "incident_id":
		var id uint
		switch v.Kind() {
		case slog.KindUint64:
			id = uint(v.Uint64())
		case slog.KindInt64:
			if v.Int64() < 0 {
				return false
			}
			id = uint(v.Int64())
		default:
			return false
		}
		entry.IncidentID = &id
	case "route":
		entry.Route = strings.Clone(v.String())
	case "error":
		entry.Error = strings.Clone(v.String())
	default:
		return false
	}
	return true
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]scopedAttr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		merged = append(merged, scopedAttr{group: h.group, attr: a})
	}
	return &DBHandler{sink: h.sink, attrs: merged, group: h.group}
}

func (h *DBHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &DBHandler{sink: h.sink, attrs: h.attrs, group: group}
}
