package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/photos"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateIncidentInput struct {
	UserID        string
	Type          string
	Description   string
	ApplianceType string
	Photos        json.RawMessage
}

// StatusUpdate is a partial update: nil fields are left untouched.
type StatusUpdate struct {
	Status     *string
	Feedback   *string
	Resolution *string
}

// StatusCount is one row of the per-status summary.
type StatusCount struct {
	Status string
	Count  int64
}

type IncidentService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewIncidentService(db *gorm.DB, notifier Notifier) *IncidentService {
	return &IncidentService{db: db, notifier: notifier}
}

// Create validates the input, normalizes photos and inserts the incident in a
// transaction that also checks the owner exists. Nothing is persisted unless
// every step succeeds.
func (s *IncidentService) Create(ctx context.Context, in CreateIncidentInput) (*models.Incident, error) {
	if err := requireFields(map[string]string{
		"user_id":        in.UserID,
		"type":           in.Type,
		"description":    in.Description,
		"appliance_type": in.ApplianceType,
	}, map[string]string{
		"user_id":        "user id is required",
		"type":           "incident type is required",
		"description":    "description is required",
		"appliance_type": "appliance type is required",
	}); err != nil {
		return nil, err
	}

	list, err := photos.FromRequest(in.Photos)
	if err != nil {
		var oversize *photos.OversizeError
		if errors.As(err, &oversize) {
			metrics.PhotosRejected.Add(float64(oversize.Count))
		}
		return nil, err
	}

	var created models.Incident
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Select("id").Where("id = ?", in.UserID).First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		incident := models.Incident{
			UserID:        in.UserID,
			Type:          in.Type,
			Description:   in.Description,
			ApplianceType: in.ApplianceType,
			Status:        models.StatusPending,
			Photos:        list,
		}
		if err := tx.Omit(clause.Associations).Create(&incident).Error; err != nil {
			return err
		}

		return tx.First(&created, incident.ID).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		slog.Error("incident creation rolled back", "user_id", in.UserID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}

	metrics.IncidentsCreated.Inc()
	slog.Info("incident created", "incident_id", created.ID, "user_id", created.UserID, "photos", len(created.Photos))
	return &created, nil
}

// ListByUser returns the user's incidents, newest first.
func (s *IncidentService) ListByUser(ctx context.Context, userID string) ([]models.Incident, error) {
	var incidents []models.Incident
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&incidents).Error
	return incidents, err
}

// CountByStatus returns how many of the user's incidents are in each status.
func (s *IncidentService) CountByStatus(ctx context.Context, userID string) ([]StatusCount, error) {
	var counts []StatusCount
	err := s.db.WithContext(ctx).
		Model(&models.Incident{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&counts).Error
	return counts, err
}

func (s *IncidentService) GetByID(ctx context.Context, id uint) (*models.Incident, error) {
	var incident models.Incident
	if err := s.db.WithContext(ctx).First(&incident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, err
	}
	return &incident, nil
}

// GetWithOwner loads the incident together with its owner's user row.
func (s *IncidentService) GetWithOwner(ctx context.Context, id uint) (*models.Incident, error) {
	var incident models.Incident
	if err := s.db.WithContext(ctx).Joins("User").First(&incident, "incidents.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, err
	}
	return &incident, nil
}

// ListAll returns every incident with its owner, newest first.
func (s *IncidentService) ListAll(ctx context.Context) ([]models.Incident, error) {
	var incidents []models.Incident
	err := s.db.WithContext(ctx).
		Joins("User").
		Order("incidents.created_at DESC").
		Order("incidents.id DESC").
		Find(&incidents).Error
	return incidents, err
}

// UpdateStatus applies the supplied fields only. updated_at is refreshed by
// the storage trigger, not here.
func (s *IncidentService) UpdateStatus(ctx context.Context, id uint, upd StatusUpdate) (*models.Incident, error) {
	if upd.Status != nil && !models.ValidStatus(*upd.Status) {
		return nil, ErrInvalidStatus
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if upd.Status != nil {
		changes["status"] = *upd.Status
	}
	if upd.Feedback != nil {
		changes["feedback"] = *upd.Feedback
	}
	if upd.Resolution != nil {
		changes["resolution"] = *upd.Resolution
	}

	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).
			Model(&models.Incident{}).
			Where("id = ?", id).
			Updates(changes).Error; err != nil {
			return nil, fmt.Errorf("failed to update incident: %w", err)
		}
	}

	return s.GetByID(ctx, id)
}

// Resolve is the administrator update: it applies status and resolution, then
// emails the owner. A failed email is logged and never fails the update.
func (s *IncidentService) Resolve(ctx context.Context, id uint, status string, resolution *string) (*models.Incident, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	if _, err := s.UpdateStatus(ctx, id, StatusUpdate{Status: &status, Resolution: resolution}); err != nil {
		return nil, err
	}

	incident, err := s.GetWithOwner(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notifyOwner(ctx, incident)
	return incident, nil
}

func (s *IncidentService) notifyOwner(ctx context.Context, incident *models.Incident) {
	if s.notifier == nil || incident.User.Email == "" {
		return
	}
	if err := s.notifier.IncidentUpdated(ctx, incident.User.Email, incident); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		reportError(err)
		slog.Error("failed to send incident notification",
			"incident_id", incident.ID, "user_id", incident.UserID, "error", err)
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
	slog.Info("incident notification sent", "incident_id", incident.ID, "user_id", incident.UserID)
}
