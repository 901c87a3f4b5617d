package auth

import (
	"context"
	"testing"

	"github.com/bher20/billmanager/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(storage.NewMemory())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "s3cret", "editor")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash == "s3cret" {
		t.Error("password stored in plaintext")
	}

	if _, err := svc.Register(ctx, "alice", "other", "viewer"); err == nil {
		t.Error("expected error registering duplicate username")
	}

	got, err := svc.Authenticate(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("authenticated user ID = %q, want %q", got.ID, u.ID)
	}

	if _, err := svc.Authenticate(ctx, "alice", "wrong"); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, err := svc.Authenticate(ctx, "nobody", "s3cret"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestRolePermissions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, "root", "pw", "admin")
	if err != nil {
		t.Fatalf("Register admin: %v", err)
	}
	viewer, err := svc.Register(ctx, "watcher", "pw", "viewer")
	if err != nil {
		t.Fatalf("Register viewer: %v", err)
	}

	cases := []struct {
		userID string
		obj    string
		act    string
		want   bool
	}{
		{admin.ID, "bills", "write", true},
		{admin.ID, "settings", "write", true},
		{viewer.ID, "bills", "read", true},
		{viewer.ID, "tariffs", "read", true},
		{viewer.ID, "bills", "write", false},
		{viewer.ID, "settings", "write", false},
	}
	for _, tc := range cases {
		got, err := svc.Enforce(tc.userID, tc.obj, tc.act)
		if err != nil {
			t.Errorf("Enforce(%q, %q, %q): %v", tc.userID, tc.obj, tc.act, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Enforce(%q, %q, %q) = %v, want %v", tc.userID, tc.obj, tc.act, got, tc.want)
		}
	}
}

func TestTokenLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "pw", "editor")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	tok, raw, err := svc.CreateToken(ctx, u.ID, "ci", "editor", nil)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if raw == "" || tok.TokenHash == raw {
		t.Error("raw token missing or stored unhashed")
	}

	got, err := svc.ValidateToken(ctx, raw)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got.ID != tok.ID {
		t.Errorf("validated token ID = %q, want %q", got.ID, tok.ID)
	}

	if _, err := svc.ValidateToken(ctx, "bogus"); err == nil {
		t.Error("expected error for unknown token")
	}
}
