package service

import (
	"context"

	"food-order-service/apperrors"
	"food-order-service/models"
	"food-order-service/store"
)

// SessionRevoker ends the long-lived connections of a user whose account was
// deactivated or deleted.
type SessionRevoker interface {
	RevokeUser(userID uint)
}

// UserService is the admin view over accounts.
type UserService struct {
	users    store.UserStore
	sessions SessionRevoker
}

// NewUserService returns the account service. sessions may be nil.
func NewUserService(users store.UserStore, sessions SessionRevoker) *UserService {
	return &UserService{users: users, sessions: sessions}
}

func (s *UserService) revoke(id uint) {
	if s.sessions != nil {
		s.sessions.RevokeUser(id)
	}
}

func (s *UserService) List(ctx context.Context, admin *models.User) ([]models.User, error) {
	if err := RequireAdmin(admin); err != nil {
		return nil, err
	}
	return s.users.ListUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, admin *models.User, id uint) (*models.User, error) {
	if err := RequireAdmin(admin); err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, id)
}

// SetActive activates or deactivates an account. Deactivated users can no
// longer log in and their existing tokens stop working.
func (s *UserService) SetActive(ctx context.Context, admin *models.User, id uint, active bool) (*models.User, error) {
	if err := RequireAdmin(admin); err != nil {
		return nil, err
	}
	if id == admin.ID && !active {
		return nil, apperrors.Validation("you cannot deactivate your own account")
	}
	user, err := s.users.SetUserActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	if !active {
		s.revoke(id)
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, admin *models.User, id uint) error {
	if err := RequireAdmin(admin); err != nil {
		return err
	}
	if id == admin.ID {
		return apperrors.Validation("you cannot delete your own account")
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.revoke(id)
	return nil
}
