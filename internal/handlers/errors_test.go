package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLogStore struct {
	mu    sync.Mutex
	saved []models.SystemLog
}

func (m *memoryLogStore) SaveLogs(_ context.Context, entries []models.SystemLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, entries...)
	return nil
}

func (m *memoryLogStore) PurgeBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestErrorHandlerLogsTheFailingPath(t *testing.T) {
	store := &memoryLogStore{}
	sink := logging.NewDBHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	previous := slog.Default()
	slog.SetDefault(slog.New(sink))
	t.Cleanup(func() { slog.SetDefault(previous) })

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/boom/:id", func(c *fiber.Ctx) error {
		return errors.New("database unreachable")
	})
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom/aaaaaaaaaaaa", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	// Later requests reuse the request buffers before the sink flushes.
	for i := 0; i < 5; i++ {
		resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/zzzzzzzzzzzzzzzzzzzzzz", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	sink.Stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.saved, 1)
	assert.Equal(t, "unhandled server error", store.saved[0].Message)
	assert.Equal(t, "/boom/aaaaaaaaaaaa", store.saved[0].Route)
	assert.Equal(t, "database unreachable", store.saved[0].Error)
}
