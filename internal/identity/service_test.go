package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	ctx := context.Background()
	user, err := svc.Register(ctx, Credentials{Phone: "+221770000001", PIN: "1234", DeviceID: "device-1"}, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != RoleUser {
		t.Fatalf("expected default role user, got %s", user.Role)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Phone: user.Phone, PIN: "1234", DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, authed.ID)
	}
}

func TestRegisterHostRole(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	host, err := svc.Register(ctx, Credentials{Phone: "+221770000002", PIN: "4321"}, RoleHost)
	if err != nil {
		t.Fatalf("register host: %v", err)
	}
	if host.Role != RoleHost {
		t.Fatalf("expected role host, got %s", host.Role)
	}

	if _, err := svc.Register(ctx, Credentials{Phone: "+221770000003", PIN: "4321"}, "admin"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Phone: "+221770000004", PIN: "1234"}, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Phone: "+221770000004", PIN: "5678"}, ""); !errors.Is(err, ErrPhoneTaken) {
		t.Fatalf("expected ErrPhoneTaken, got %v", err)
	}
}

func TestAuthenticateWrongPIN(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Phone: "+221770000005", PIN: "1234"}, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Phone: user.Phone, PIN: "9999"}); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
}

func TestAuthenticateDeviceBinding(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Phone: "+221770000006", PIN: "1234"}, "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// First login from a device binds it.
	authed, err := svc.Authenticate(ctx, Credentials{Phone: user.Phone, PIN: "1234", DeviceID: "device-1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.DeviceID != "device-1" {
		t.Fatalf("expected device binding, got %q", authed.DeviceID)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Phone: user.Phone, PIN: "1234", DeviceID: "device-2"}); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch, got %v", err)
	}
}
