package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("testdata-missing.env")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Waitlist.ResponseWindowMinutes != 24*60 {
		t.Fatalf("expected 24h window, got %d", cfg.Waitlist.ResponseWindowMinutes)
	}
	if cfg.Waitlist.MaxEntriesPerClient != 3 || cfg.Waitlist.EntryValidityDays != 30 {
		t.Fatalf("unexpected waitlist defaults: %+v", cfg.Waitlist)
	}
	if cfg.Worker.SweepInterval != time.Minute {
		t.Fatalf("unexpected sweep interval %s", cfg.Worker.SweepInterval)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WAITLIST_RESPONSE_WINDOW_MINUTES", "90")
	t.Setenv("WAITLIST_PRIORITY_CLASSES", "vip,normal")
	t.Setenv("ABSENCE_BLOCK_AFTER_NO_SHOWS", "5")
	t.Setenv("APP_TIMEZONE", "Europe/Madrid")

	cfg, err := Load("testdata-missing.env")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Waitlist.ResponseWindowMinutes != 90 {
		t.Fatalf("expected 90, got %d", cfg.Waitlist.ResponseWindowMinutes)
	}
	if len(cfg.Waitlist.PriorityClasses) != 2 || cfg.Waitlist.PriorityClasses[0] != "vip" {
		t.Fatalf("unexpected classes %v", cfg.Waitlist.PriorityClasses)
	}
	if cfg.Absence.BlockAfterNoShows != 5 {
		t.Fatalf("expected 5, got %d", cfg.Absence.BlockAfterNoShows)
	}
	if cfg.Location().String() != "Europe/Madrid" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	if _, err := Load("testdata-missing.env"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestGetSafeBeforeInit(t *testing.T) {
	Set(nil)
	if _, ok := GetSafe(); ok {
		t.Fatal("expected config to be unset")
	}
}
