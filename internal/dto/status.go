package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
)

const shortDescriptionRunes = 60

var (
	StatusLabels = map[string]string{
		models.StatusPending:    "Pendiente",
		models.StatusInProgress: "En proceso",
		models.StatusResolved:   "Resuelto",
		models.StatusRejected:   "Rechazado",
	}
	StatusColors = map[string]string{
		models.StatusPending:    "#f39c12",
		models.StatusInProgress: "#3498db",
		models.StatusResolved:   "#2ecc71",
		models.StatusRejected:   "#e74c3c",
	}
	StatusIcons = map[string]string{
		models.StatusPending:    "clock",
		models.StatusInProgress: "tools",
		models.StatusResolved:   "check-circle",
		models.StatusRejected:   "times-circle",
	}
)

func StatusText(status string) string {
	return lookup(StatusLabels, status, "Desconocido")
}

func lookup(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

func NewIncidentStatus(inc *models.Incident) IncidentStatusResponse {
	return IncidentStatusResponse{
		ID:         inc.ID,
		Status:     inc.Status,
		Resolution: inc.Resolution,
		Feedback:   inc.Feedback,
		CreatedAt:  inc.CreatedAt,
		UpdatedAt:  inc.UpdatedAt,
		StatusText: StatusText(inc.Status),
	}
}

func NewDashboardIncident(inc models.Incident) DashboardIncident {
	return DashboardIncident{
		ID:               inc.ID,
		Status:           inc.Status,
		Type:             inc.Type,
		ApplianceType:    inc.ApplianceType,
		Description:      inc.Description,
		Photos:           inc.Photos,
		CreatedAt:        inc.CreatedAt,
		UpdatedAt:        inc.UpdatedAt,
		StatusText:       StatusText(inc.Status),
		StatusColor:      lookup(StatusColors, inc.Status, "#95a5a6"),
		Icon:             lookup(StatusIcons, inc.Status, "question"),
		FormattedDate:    formatDate(inc.CreatedAt),
		ShortDescription: shorten(inc.Description),
	}
}

// NewDashboard assembles the dashboard from the user's incidents and per-status counts.
func NewDashboard(incidents []models.Incident, counts map[string]int64) DashboardResponse {
	items := make([]DashboardIncident, len(incidents))
	for i, inc := range incidents {
		items[i] = NewDashboardIncident(inc)
	}

	return DashboardResponse{
		Summary: StatusSummary{
			Total:      int64(len(incidents)),
			Pending:    counts[models.StatusPending],
			InProgress: counts[models.StatusInProgress],
			Resolved:   counts[models.StatusResolved],
			Rejected:   counts[models.StatusRejected],
		},
		Incidents:    items,
		StatusLabels: StatusLabels,
		StatusColors: StatusColors,
		StatusIcons:  StatusIcons,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Fecha desconocida"
	}
	return t.Format("02/01/2006")
}

func shorten(s string) string {
	r := []rune(s)
	if len(r) <= shortDescriptionRunes {
		return s
	}
	return string(r[:shortDescriptionRunes]) + "..."
}
