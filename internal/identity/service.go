package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPIN indicates the PIN is malformed or does not match.
	ErrInvalidPIN = errors.New("invalid PIN")
	// ErrDeviceMismatch indicates the login came from an unbound device.
	ErrDeviceMismatch = errors.New("device mismatch")
	// ErrInvalidRole rejects unknown account roles at registration.
	ErrInvalidRole = errors.New("invalid role")
)

// Service manages identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new account with a hashed PIN. Role defaults to "user";
// hosts and technicians register with their role explicitly.
func (s *Service) Register(ctx context.Context, creds Credentials, role string) (User, error) {
	if len(creds.PIN) < 4 {
		return User{}, ErrInvalidPIN
	}
	if role == "" {
		role = RoleUser
	}
	switch role {
	case RoleUser, RoleHost, RoleTechnician:
	default:
		return User{}, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:        uuid.New().String(),
		Phone:     creds.Phone,
		Role:      role,
		PINHash:   hash,
		DeviceID:  creds.DeviceID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies credentials and device binding. The first login from
// a device binds it; subsequent logins must present the same device.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByPhone(ctx, creds.Phone)
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(creds.PIN)); err != nil {
		return User{}, ErrInvalidPIN
	}

	if user.DeviceID == "" {
		if creds.DeviceID != "" {
			if err := s.repo.UpdateDevice(ctx, user.ID, creds.DeviceID); err != nil {
				return User{}, err
			}
			user.DeviceID = creds.DeviceID
		}
	} else if creds.DeviceID != "" && user.DeviceID != creds.DeviceID {
		return User{}, ErrDeviceMismatch
	}

	return user, nil
}

// Get fetches a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
