package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/photos"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) IncidentUpdated(_ context.Context, to string, incident *models.Incident) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to+"|"+NotificationBody(incident))
	return n.err
}

func newIncidentInput(userID string, photosJSON string) CreateIncidentInput {
	return CreateIncidentInput{
		UserID:        userID,
		Type:          "no enciende",
		Description:   "La nevera no enciende desde ayer",
		ApplianceType: "Nevera",
		Photos:        json.RawMessage(photosJSON),
	}
}

func strPtr(s string) *string { return &s }

func TestCreateIncident(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	svc := NewIncidentService(db, nil)

	inc, err := svc.Create(context.Background(), newIncidentInput("u1", `["data:image/png;base64,AAAA"]`))
	require.NoError(t, err)

	assert.NotZero(t, inc.ID)
	assert.Equal(t, models.StatusPending, inc.Status)
	assert.Equal(t, photos.List{"data:image/png;base64,AAAA"}, inc.Photos)
	assert.False(t, inc.CreatedAt.IsZero())

	var raw string
	require.NoError(t, db.Raw("SELECT photos FROM incidents WHERE id = ?", inc.ID).Scan(&raw).Error)
	assert.JSONEq(t, `["data:image/png;base64,AAAA"]`, raw)
}

func TestCreateIncidentRawStringPhoto(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	svc := NewIncidentService(db, nil)

	inc, err := svc.Create(context.Background(), newIncidentInput("u1", `"not valid json"`))
	require.NoError(t, err)
	assert.Equal(t, photos.List{"not valid json"}, inc.Photos)
}

func TestCreateIncidentWithoutPhotos(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	svc := NewIncidentService(db, nil)

	inc, err := svc.Create(context.Background(), newIncidentInput("u1", ``))
	require.NoError(t, err)
	assert.Equal(t, photos.List{}, inc.Photos)
}

func TestCreateIncidentValidation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewIncidentService(db, nil)

	_, err := svc.Create(context.Background(), CreateIncidentInput{UserID: "u1", Type: " "})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 3)
	assert.Contains(t, verr.Fields, "type")
	assert.Contains(t, verr.Fields, "description")
	assert.Contains(t, verr.Fields, "appliance_type")
}

func TestCreateIncidentOversizePhoto(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	svc := NewIncidentService(db, nil)

	body, err := json.Marshal([]string{strings.Repeat("A", 7_000_000)})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), newIncidentInput("u1", string(body)))
	var oversize *photos.OversizeError
	require.True(t, errors.As(err, &oversize))
	assert.Equal(t, 1, oversize.Count)

	var count int64
	require.NoError(t, db.Model(&models.Incident{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateIncidentUnknownUserPersistsNothing(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewIncidentService(db, nil)

	_, err := svc.Create(context.Background(), newIncidentInput("ghost", `[]`))
	assert.ErrorIs(t, err, ErrUserNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Incident{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListByUserNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	testutil.SeedUser(t, db, "u2", "u2@example.com", "email", "")
	svc := NewIncidentService(db, nil)

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, user := range []string{"u1", "u1", "u2", "u1"} {
		inc := models.Incident{
			UserID:        user,
			Type:          "t",
			Description:   "d",
			ApplianceType: "Lavadora",
			Status:        models.StatusPending,
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.Omit("User").Create(&inc).Error)
	}
	// A legacy row holding a bare data URI instead of a JSON array.
	require.NoError(t, db.Exec("UPDATE incidents SET photos = ? WHERE id = 1", "data:image/png;base64,OLD").Error)

	list, err := svc.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uint{4, 2, 1}, []uint{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, photos.List{"data:image/png;base64,OLD"}, list[2].Photos)
	assert.Equal(t, photos.List{}, list[0].Photos)
}

func TestCountByStatus(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	svc := NewIncidentService(db, nil)

	for _, status := range []string{"pending", "pending", "resolved"} {
		inc := models.Incident{UserID: "u1", Type: "t", Description: "d", ApplianceType: "a", Status: status}
		require.NoError(t, db.Omit("User").Create(&inc).Error)
	}

	counts, err := svc.CountByStatus(context.Background(), "u1")
	require.NoError(t, err)

	got := map[string]int64{}
	for _, c := range counts {
		got[c.Status] = c.Count
	}
	assert.Equal(t, map[string]int64{"pending": 2, "resolved": 1}, got)
}

func TestGetByIDNotFound(t *testing.T) {
	svc := NewIncidentService(testutil.NewDB(t), nil)
	_, err := svc.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestUpdateStatusIsPartial(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	svc := NewIncidentService(db, nil)

	inc, err := svc.Create(context.Background(), newIncidentInput("u1", `["data:image/png;base64,AAAA"]`))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), inc.ID, StatusUpdate{Resolution: strPtr("Cambio de placa")})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), inc.ID, StatusUpdate{
		Status:   strPtr(models.StatusInProgress),
		Feedback: strPtr("Gracias"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.NotNil(t, updated.Feedback)
	assert.Equal(t, "Gracias", *updated.Feedback)
	require.NotNil(t, updated.Resolution, "earlier resolution must survive a later partial update")
	assert.Equal(t, "Cambio de placa", *updated.Resolution)
	assert.Equal(t, inc.Description, updated.Description)
	assert.Equal(t, inc.Photos, updated.Photos)
}

func TestUpdateStatusRefreshesUpdatedAtInStorage(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	svc := NewIncidentService(db, nil)

	inc, err := svc.Create(context.Background(), newIncidentInput("u1", `[]`))
	require.NoError(t, err)

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Exec("UPDATE incidents SET updated_at = ? WHERE id = ?", old, inc.ID).Error)

	updated, err := svc.UpdateStatus(context.Background(), inc.ID, StatusUpdate{Status: strPtr(models.StatusResolved)})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(old), "updated_at = %v", updated.UpdatedAt)
}

func TestUpdateStatusErrors(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	svc := NewIncidentService(db, nil)

	_, err := svc.UpdateStatus(context.Background(), 1, StatusUpdate{Status: strPtr("closed")})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(context.Background(), 42, StatusUpdate{Status: strPtr(models.StatusResolved)})
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestResolveNotifiesOwner(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	notifier := &recordingNotifier{}
	svc := NewIncidentService(db, notifier)

	inc, err := svc.Create(context.Background(), newIncidentInput("u1", `[]`))
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), inc.ID, models.StatusResolved, strPtr("Técnico enviado"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusResolved, resolved.Status)
	assert.Equal(t, "u1@example.com", resolved.User.Email)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "u1@example.com|Su incidencia ha sido actualizada.\nNuevo estado: resolved\n\nResolución:\nTécnico enviado", notifier.sent[0])
}

func TestResolveSurvivesMailFailure(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	svc := NewIncidentService(db, &recordingNotifier{err: errors.New("smtp down")})

	inc, err := svc.Create(context.Background(), newIncidentInput("u1", `[]`))
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), inc.ID, models.StatusRejected, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, resolved.Status)

	stored, err := svc.GetByID(context.Background(), inc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
}

func TestListAllIncludesOwner(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", "u1@example.com", "email", "")
	testutil.SeedUser(t, db, "g1", "g1@gmail.com", "google", "")
	svc := NewIncidentService(db, nil)

	_, err := svc.Create(context.Background(), newIncidentInput("u1", `[]`))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), newIncidentInput("g1", `[]`))
	require.NoError(t, err)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "g1@gmail.com", all[0].User.Email)
	assert.Equal(t, "google", all[0].User.Provider)
	assert.Equal(t, "u1@example.com", all[1].User.Email)
}
