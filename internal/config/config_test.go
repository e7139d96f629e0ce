package config

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "test-access")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("api port default = %d", cfg.API.Port)
	}
	if cfg.Worker.Concurrency != 1 {
		t.Errorf("worker concurrency default = %d, want 1", cfg.Worker.Concurrency)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr())
	}
}

func TestLoadWorkerConcurrencyOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WORKER_CONCURRENCY", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Errorf("worker concurrency = %d, want 4", cfg.Worker.Concurrency)
	}
}

func TestLoadRejectsNonPositiveConcurrency(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WORKER_CONCURRENCY", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for zero concurrency")
	}
}

func TestLoadTrimsTrailingSlashes(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VERIFY_BASE_URL", "https://summit.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Render.VerifyBaseURL != "https://summit.example.com" {
		t.Errorf("verify base url = %q", cfg.Render.VerifyBaseURL)
	}
}
