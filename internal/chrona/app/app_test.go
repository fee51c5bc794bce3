package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chrona-app/chrona/internal/chrona/app"
	"github.com/chrona-app/chrona/internal/chrona/store"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	return &app.Config{
		DatabasePath:      filepath.Join(t.TempDir(), "chrona.db"),
		HTTPAddr:          "127.0.0.1:0",
		JWTSecret:         "test-secret",
		ReminderInterval:  time.Minute,
		SyncInterval:      time.Minute,
		BootstrapUsername: "alice",
		BootstrapEmail:    "alice@example.com",
		BootstrapPassword: "hunter2",
	}
}

func TestNew_CreatesBootstrapUser(t *testing.T) {
	cfg := testConfig(t)

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Stop()

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()

	user, err := st.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email: got %q", user.Email)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("hunter2")); err != nil {
		t.Errorf("stored hash does not match the password: %v", err)
	}
}

func TestNew_ReusesExistingBootstrapUser(t *testing.T) {
	cfg := testConfig(t)

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	a.Stop()

	// Second start against the same database must not duplicate the user
	// and must not require the password again.
	cfg.BootstrapPassword = ""
	a, err = app.New(cfg)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	defer a.Stop()

	token, err := a.BootstrapToken()
	if err != nil {
		t.Fatalf("BootstrapToken: %v", err)
	}
	if token == "" {
		t.Error("expected a signed token")
	}
}

func TestNew_BootstrapRequiresPassword(t *testing.T) {
	cfg := testConfig(t)
	cfg.BootstrapPassword = ""

	if _, err := app.New(cfg); err == nil {
		t.Fatal("expected an error creating a bootstrap user without a password")
	}
}

func TestBootstrapToken_WithoutBootstrapUser(t *testing.T) {
	cfg := testConfig(t)
	cfg.BootstrapUsername = ""
	cfg.BootstrapPassword = ""

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Stop()

	if _, err := a.BootstrapToken(); err == nil {
		t.Error("expected an error without a bootstrap user")
	}
}
