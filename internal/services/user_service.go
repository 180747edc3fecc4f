package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"gorm.io/gorm"
)

var ErrInvalidProvider = errors.New("invalid provider: must be email or google")

type UpsertUserInput struct {
	ID       string
	Email    string
	Provider string
	Name     *string
	PhotoURL *string
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Upsert creates the profile on first login and refreshes its mutable fields
// afterwards. The role is never touched here. created reports which path ran.
func (s *UserService) Upsert(ctx context.Context, in UpsertUserInput) (user *models.User, created bool, err error) {
	if err := requireFields(map[string]string{
		"id":    in.ID,
		"email": in.Email,
	}, map[string]string{
		"id":    "user id is required",
		"email": "email is required",
	}); err != nil {
		return nil, false, err
	}
	if in.Provider != models.ProviderEmail && in.Provider != models.ProviderGoogle {
		return nil, false, ErrInvalidProvider
	}

	var result models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).
			Where("email = ? AND id <> ?", in.Email, in.ID).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrEmailTaken
		}

		err := tx.Where("id = ?", in.ID).First(&result).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = models.User{
				ID:       in.ID,
				Email:    in.Email,
				Provider: in.Provider,
				Role:     models.RoleUser,
				Name:     in.Name,
				PhotoURL: in.PhotoURL,
			}
			created = true
			return tx.Create(&result).Error
		case err != nil:
			return err
		}

		changes := map[string]interface{}{
			"email":    in.Email,
			"provider": in.Provider,
		}
		if in.Name != nil {
			changes["name"] = *in.Name
		}
		if in.PhotoURL != nil {
			changes["photo_url"] = *in.PhotoURL
		}
		if err := tx.Model(&result).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", in.ID).First(&result).Error
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &result, created, nil
}

// Account returns the stored role and provider of the user.
func (s *UserService) Account(ctx context.Context, id string) (identity.Account, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "role", "provider").Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.Account{}, ErrUserNotFound
		}
		return identity.Account{}, err
	}
	return identity.Account{Role: user.Role, Provider: user.Provider}, nil
}

// PromoteAdmins grants the admin role to existing users with the given emails.
// Google accounts are skipped: they can never act as administrators.
func (s *UserService) PromoteAdmins(ctx context.Context, emails []string) (int64, error) {
	cleaned := make([]string, 0, len(emails))
	for _, e := range emails {
		if e = strings.TrimSpace(e); e != "" {
			cleaned = append(cleaned, e)
		}
	}
	if len(cleaned) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email IN ? AND provider <> ?", cleaned, models.ProviderGoogle).
		Update("role", models.RoleAdmin)
	return result.RowsAffected, result.Error
}
