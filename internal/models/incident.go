package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/photos"
	"gorm.io/gorm"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
)

// Statuses lists every incident status in display order.
var Statuses = []string{StatusPending, StatusInProgress, StatusResolved, StatusRejected}

func ValidStatus(s string) bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Incident is an appliance incident reported by a user.
//
// UpdatedAt is owned by the database: GORM never writes it on update, a
// trigger installed by database.Migrate refreshes it on every row change.
type Incident struct {
	ID            uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string      `gorm:"size:128;not null;index" json:"user_id"`
	Type          string      `gorm:"size:100;not null" json:"type"`
	Description   string      `gorm:"type:text;not null" json:"description"`
	ApplianceType string      `gorm:"size:100;not null" json:"appliance_type"`
	Status        string      `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Photos        photos.List `json:"photos"`
	Resolution    *string     `gorm:"type:text" json:"resolution"`
	AdminNotes    *string     `gorm:"type:text" json:"admin_notes"`
	Feedback      *string     `gorm:"type:text" json:"feedback"`
	CreatedAt     time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime:false" json:"updated_at"`
	User          User        `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (i *Incident) BeforeCreate(_ *gorm.DB) error {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = i.CreatedAt
	}
	if i.Photos == nil {
		i.Photos = photos.List{}
	}
	return nil
}
