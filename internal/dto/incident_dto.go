package dto

import (
	"encoding/json"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/photos"
)

type CreateIncidentRequest struct {
	UserID        string          `json:"user_id"`
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	ApplianceType string          `json:"appliance_type"`
	Photos        json.RawMessage `json:"photos"`
}

type CreateIncidentResponse struct {
	Message  string           `json:"message"`
	Incident *models.Incident `json:"incident"`
}

// UpdateStatusRequest is the owner/admin partial update; absent fields stay as they are.
type UpdateStatusRequest struct {
	Status   *string `json:"status"`
	Feedback *string `json:"feedback"`
}

type AdminUpdateRequest struct {
	Status     string  `json:"status"`
	Resolution *string `json:"resolution"`
}

type IncidentStatusResponse struct {
	ID         uint      `json:"id"`
	Status     string    `json:"status"`
	Resolution *string   `json:"resolution"`
	Feedback   *string   `json:"feedback"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	StatusText string    `json:"status_text"`
}

// AdminIncident is an incident as the back office sees it, with its owner.
type AdminIncident struct {
	models.Incident
	UserEmail    string `json:"user_email"`
	AuthProvider string `json:"auth_provider"`
}

func NewAdminIncident(inc models.Incident) AdminIncident {
	provider := inc.User.Provider
	if provider == "" {
		provider = models.ProviderEmail
	}
	return AdminIncident{Incident: inc, UserEmail: inc.User.Email, AuthProvider: provider}
}

type StatusSummary struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Rejected   int64 `json:"rejected"`
}

type DashboardIncident struct {
	ID               uint        `json:"id"`
	Status           string      `json:"status"`
	Type             string      `json:"type"`
	ApplianceType    string      `json:"appliance_type"`
	Description      string      `json:"description"`
	Photos           photos.List `json:"photos"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	StatusText       string      `json:"status_text"`
	StatusColor      string      `json:"status_color"`
	Icon             string      `json:"icon"`
	FormattedDate    string      `json:"formatted_date"`
	ShortDescription string      `json:"short_description"`
}

type DashboardResponse struct {
	Summary      StatusSummary       `json:"summary"`
	Incidents    []DashboardIncident `json:"incidents"`
	StatusLabels map[string]string   `json:"statusLabels"`
	StatusColors map[string]string   `json:"statusColors"`
	StatusIcons  map[string]string   `json:"statusIcons"`
}
