package config

import (
	"testing"
	"time"

	"github.com/pauljones0/discogs-deals/internal/condition"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("FEED_URL", "https://example.com/deals.atom")
	t.Setenv("FEED_AUTHOR_NAME", "Test Collector")
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_CONDITION", ">VG")
	t.Setenv("MIN_DISCOUNT", "30")
	t.Setenv("BLOCKED_SELLERS", "badseller,worse")
	t.Setenv("RUN_MINUTES", "15")
	t.Setenv("ALLOW_VG_MIN_AGE", "20")
	t.Setenv("ALLOW_VG_MIN_SELLER_RATING", "99.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.MinCondition.Min != condition.VeryGoodPlus {
		t.Errorf("Expected >VG to mean at least VG+, got %s", cfg.MinCondition.Min)
	}
	if cfg.ConditionScope != condition.ScopeBoth {
		t.Errorf("Expected default scope both, got %s", cfg.ConditionScope)
	}
	if cfg.MinDiscount != 30 {
		t.Errorf("Expected 30, got %d", cfg.MinDiscount)
	}
	if len(cfg.BlockedSellers) != 2 || cfg.BlockedSellers[1] != "worse" {
		t.Errorf("Unexpected blocked sellers %v", cfg.BlockedSellers)
	}
	if cfg.RunBudget() != 15*time.Minute {
		t.Errorf("Expected 15m budget, got %s", cfg.RunBudget())
	}
	if cfg.AllowVGMinAge != 20 || cfg.AllowVGMinSellerRating != 99.5 {
		t.Errorf("Unexpected VG+ limits %d / %v", cfg.AllowVGMinAge, cfg.AllowVGMinSellerRating)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.FeedTitle != "Discogs Deals" {
		t.Errorf("Expected default title, got %q", cfg.FeedTitle)
	}
	if cfg.FeedMaxEntries != 50 {
		t.Errorf("Expected default FeedMaxEntries 50, got %d", cfg.FeedMaxEntries)
	}
	if !cfg.MinCondition.IsAll() {
		t.Errorf("Expected default condition all, got %s", cfg.MinCondition)
	}
	if cfg.StoreBackend != BackendFile {
		t.Errorf("Expected file backend, got %s", cfg.StoreBackend)
	}
	if cfg.LedgerHorizon != 720*time.Hour {
		t.Errorf("Expected 720h horizon, got %s", cfg.LedgerHorizon)
	}
	if cfg.RunBudget() != 0 {
		t.Errorf("Expected unlimited budget, got %s", cfg.RunBudget())
	}
	if cfg.AllowVGMinAge != 0 || cfg.AllowVGMinSellerRating != 0 {
		t.Errorf("Expected VG+ limits disabled, got %d / %v", cfg.AllowVGMinAge, cfg.AllowVGMinSellerRating)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected 8080, got %s", cfg.Port)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad condition", "MIN_CONDITION", ">=Excellent"},
		{"unsatisfiable condition", "MIN_CONDITION", ">M"},
		{"bad scope", "CONDITION_SCOPE", "sleeve"},
		{"missing feed url", "FEED_URL", ""},
		{"missing author", "FEED_AUTHOR_NAME", ""},
		{"bad format", "FEED_FORMAT", "json"},
		{"bad backend", "STORE_BACKEND", "etcd"},
		{"zero entries", "FEED_MAX_ENTRIES", "0"},
		{"bad duration", "LEDGER_HORIZON", "a while"},
		{"negative VG+ age", "ALLOW_VG_MIN_AGE", "-1"},
		{"VG+ rating above 100", "ALLOW_VG_MIN_SELLER_RATING", "101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() should return an error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	if cfg.SlogLevel().String() != "DEBUG" {
		t.Errorf("Expected DEBUG, got %s", cfg.SlogLevel())
	}
	cfg.LogLevel = "nonsense"
	if cfg.SlogLevel().String() != "INFO" {
		t.Errorf("Expected INFO fallback, got %s", cfg.SlogLevel())
	}
}
