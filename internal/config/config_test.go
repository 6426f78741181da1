package config

import (
	"strings"
	"testing"
)

func TestFromYAML(t *testing.T) {
	data := []byte(`
api:
  base_url: http://localhost:8787
user:
  id: spy-1
  profile_type: individual
  profile_completed: true
session:
  token: tok-123
`)
	cfg, err := FromYAML(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8787" {
		t.Fatalf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.User.ID != "spy-1" || !cfg.User.ProfileCompleted {
		t.Fatalf("user = %+v", cfg.User)
	}
	if cfg.Session.Token != "tok-123" {
		t.Fatalf("token = %q", cfg.Session.Token)
	}
}

func TestValidateRejectsRelativeURL(t *testing.T) {
	var cfg Config
	cfg.API.BaseURL = "localhost:8787"
	if err := cfg.Validate(); err == nil {
		t.Fatal("relative base_url accepted")
	}
	cfg.API.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty base_url accepted")
	}
}

func TestValidateProfileType(t *testing.T) {
	cfg := Default()
	cfg.User.ProfileType = "ghost"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "profile_type") {
		t.Fatalf("err = %v, want profile_type error", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.User.ID = "spy-1"
	cfg.Session.Token = "tok-123"
	if err := Save(dir, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.User.ID != "spy-1" || loaded.Session.Token != "tok-123" {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	if err != nil || cfg != nil {
		t.Fatalf("LoadOptional = (%v, %v), want (nil, nil)", cfg, err)
	}
}

func TestLoadMissingFileNamesInitCommand(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "config init") {
		t.Fatalf("err = %v, want pointer to config init", err)
	}
}
