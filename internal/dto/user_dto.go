package dto

import "github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"

type UpsertUserRequest struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Provider string  `json:"provider"`
	Name     *string `json:"name"`
	PhotoURL *string `json:"photo_url"`
}

type UserResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

type AdminCheckResponse struct {
	IsAdmin bool   `json:"isAdmin"`
	Message string `json:"message"`
}
