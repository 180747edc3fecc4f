package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// User mirrors an identity-provider account. ID is the provider's subject id.
type User struct {
	ID        string    `gorm:"primaryKey;size:128" json:"id"`
	Email     string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Role      string    `gorm:"size:20;not null;default:'user'" json:"role"`
	Provider  string    `gorm:"size:20;not null;default:'email'" json:"provider"`
	Name      *string   `gorm:"size:255" json:"name"`
	PhotoURL  *string   `gorm:"type:text" json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
