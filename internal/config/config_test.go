package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/detailongo/dotg-team/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
services:
  availability_url: "https://slots.example.com/website-availability"
  orders_url: "${DOTG_ORDERS_URL}"
  timeout: 3s
booking:
  branches:
    - id: "lwr"
      name: "Lawrence"
      phone: "785-000-0000"
    - id: "kc"
      name: "Kansas City"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	t.Setenv("DOTG_ORDERS_URL", "https://orders.example.com")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Services.OrdersURL != "https://orders.example.com" {
		t.Errorf("expected expanded orders url, got %s", cfg.Services.OrdersURL)
	}
	if cfg.Services.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %s", cfg.Services.Timeout)
	}
	if cfg.Booking.DefaultBranch != "lwr" {
		t.Errorf("expected default branch lwr, got %s", cfg.Booking.DefaultBranch)
	}
	if b, ok := cfg.Branch("kc"); !ok || b.Name != "Kansas City" {
		t.Errorf("expected branch kc to be configured")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	services := ServicesConfig{AvailabilityURL: "http://a", OrdersURL: "http://o"}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Services: services,
				Booking:  BookingConfig{Branches: []models.Branch{{ID: "lwr"}}, DefaultBranch: "lwr"},
			},
			wantErr: false,
		},
		{
			name:    "missing availability url",
			cfg:     Config{Services: ServicesConfig{OrdersURL: "http://o"}},
			wantErr: true,
		},
		{
			name:    "missing orders url",
			cfg:     Config{Services: ServicesConfig{AvailabilityURL: "http://a"}},
			wantErr: true,
		},
		{
			name: "unknown default branch",
			cfg: Config{
				Services: services,
				Booking:  BookingConfig{Branches: []models.Branch{{ID: "lwr"}}, DefaultBranch: "kc"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Booking.WindowDays != models.DefaultWindowDays {
		t.Errorf("expected default window %d, got %d", models.DefaultWindowDays, cfg.Booking.WindowDays)
	}
	if cfg.Services.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %s", cfg.Services.Timeout)
	}
	if cfg.API.GRPC.Port != 8081 {
		t.Errorf("expected default gRPC port 8081, got %d", cfg.API.GRPC.Port)
	}
	if cfg.Stripe.Currency != "usd" {
		t.Errorf("expected default currency usd, got %s", cfg.Stripe.Currency)
	}
	if cfg.Bot.RateLimitMessages != models.RateLimitMessages {
		t.Errorf("expected default rate limit messages %d, got %d", models.RateLimitMessages, cfg.Bot.RateLimitMessages)
	}
}

func TestValidateBranches(t *testing.T) {
	tests := []struct {
		name     string
		branches []models.Branch
		wantErr  bool
	}{
		{
			name:     "Valid branches",
			branches: []models.Branch{{ID: "lwr"}, {ID: "kc"}},
			wantErr:  false,
		},
		{
			name:     "Duplicate ID",
			branches: []models.Branch{{ID: "lwr"}, {ID: "lwr"}},
			wantErr:  true,
		},
		{
			name:     "Empty ID",
			branches: []models.Branch{{Name: "Nowhere"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBranches(tt.branches, "")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBranches() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
