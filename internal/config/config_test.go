// Package config provides configuration management for the RunBattle service.
package config

import (
	"os"
	"strings"
	"testing"
)

const (
	validConfigPath       = "testdata/valid_config.yaml"
	expansionConfigPath   = "testdata/expansion_config.yaml"
	nonexistentConfigPath = "testdata/nonexistent_config.yaml"
	expectedNoErrorMsg    = "expected no error, got %v"
	expectedNonNilConfig  = "expected non-nil config"
	runbattleName         = "runbattle"
	developmentEnv        = "development"
	localhostHost         = "localhost"
	postgresPort          = 5432
	postgresPrefix        = "postgres://"
	testAppName           = "test-app"
	testDBPassword        = "TEST_DB_PASSWORD"
	expandedSecretValue   = "expanded_secret_value"
)

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg == nil {
		t.Fatal(expectedNonNilConfig)
	}

	if cfg.App.Name != runbattleName {
		t.Errorf("expected app name '%s', got '%s'", runbattleName, cfg.App.Name)
	}

	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}

	if cfg.Database.Host != localhostHost {
		t.Errorf("expected database host '%s', got '%s'", localhostHost, cfg.Database.Host)
	}

	if cfg.Database.Port != postgresPort {
		t.Errorf("expected database port %d, got %d", postgresPort, cfg.Database.Port)
	}

	if cfg.Race.CountdownSeconds != 5 {
		t.Errorf("expected countdown of 5 seconds, got %d", cfg.Race.CountdownSeconds)
	}

	if cfg.Filter.MaxAccuracyM != 20 {
		t.Errorf("expected max accuracy of 20 m, got %v", cfg.Filter.MaxAccuracyM)
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load(nonexistentConfigPath)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	os.Setenv("RUNBATTLE_APP_NAME", testAppName)
	defer os.Unsetenv("RUNBATTLE_APP_NAME")

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.Name != testAppName {
		t.Errorf("expected app name '%s' from environment, got '%s'", testAppName, cfg.App.Name)
	}
}

// TestLoadConfigPlaceholderExpansion tests ${VAR} expansion in the YAML file
func TestLoadConfigPlaceholderExpansion(t *testing.T) {
	os.Setenv(testDBPassword, expandedSecretValue)
	defer os.Unsetenv(testDBPassword)

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.Database.Password != expandedSecretValue {
		t.Errorf("expected expanded password '%s', got '%s'", expandedSecretValue, cfg.Database.Password)
	}
}

// TestLoadWithDefaults tests loading when the config file is absent
func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected default environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}

	if cfg.Race.GraceTimeoutSeconds != 60 {
		t.Errorf("expected default grace timeout of 60 seconds, got %d", cfg.Race.GraceTimeoutSeconds)
	}

	if cfg.Server.MessageBurst != 10 {
		t.Errorf("expected default message burst of 10, got %d", cfg.Server.MessageBurst)
	}
}

// TestValidateValidConfig tests validation of a complete configuration
func TestValidateValidConfig(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config to pass validation, got %v", err)
	}
}

// TestValidateRejectsInvalidEnvironment tests the environment validator
func TestValidateRejectsInvalidEnvironment(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	cfg.App.Environment = "invalid"
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for invalid environment")
	}
}

// TestValidateRejectsInvertedFilterThresholds tests the jitter/jump cross check
func TestValidateRejectsInvertedFilterThresholds(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	cfg.Filter.MinMoveM = 150
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error when min_move_m exceeds max_jump_m")
	}
	if !strings.Contains(err.Error(), "min_move_m") {
		t.Errorf("expected error to mention min_move_m, got %v", err)
	}
}

// TestValidateRejectsBadSweepSchedule tests cron expression validation
func TestValidateRejectsBadSweepSchedule(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	cfg.Race.LobbySweepSchedule = "not a schedule"
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for malformed sweep schedule")
	}
}

// TestValidateProductionRequiresSSL tests production SSL enforcement
func TestValidateProductionRequiresSSL(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	cfg.App.Environment = "production"
	cfg.Database.SSLMode = "disable"
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for production with SSL disabled")
	}
}

// TestGetDatabaseDSN tests DSN construction
func TestGetDatabaseDSN(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	dsn := cfg.GetDatabaseDSN()
	if !strings.HasPrefix(dsn, postgresPrefix) {
		t.Errorf("expected DSN to start with '%s', got '%s'", postgresPrefix, dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("expected DSN to carry ssl mode, got '%s'", dsn)
	}
}

// TestOverlaySecrets tests applying a secrets overlay
func TestOverlaySecrets(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	overlaySecretsOnConfig(cfg, &SecretsOverlay{
		DatabasePassword: "from-secrets-manager",
		BaselineAPIKey:   "baseline-key",
	})

	if cfg.Database.Password != "from-secrets-manager" {
		t.Errorf("expected database password from overlay, got '%s'", cfg.Database.Password)
	}
	if cfg.Baseline.APIKey != "baseline-key" {
		t.Errorf("expected baseline API key from overlay, got '%s'", cfg.Baseline.APIKey)
	}
	if cfg.Redis.Password != "" {
		t.Errorf("expected empty redis password to stay empty, got '%s'", cfg.Redis.Password)
	}
}
