package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string
	AutoMigrate  bool

	VotingTokenTTL             time.Duration
	AllowUnregisteredElections bool

	CodeRequestWindow      time.Duration
	CodeRequestMaxAttempts int
	CodeTTL                time.Duration
	CodeVerifyMaxAttempts  int
	LoginWindow            time.Duration
	LoginMaxAttempts       int

	WorkerPollInterval time.Duration
	SweepBatchSize     int
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "ballotbox"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}

	cfg := Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,
		AutoMigrate:  envBool("AUTO_MIGRATE", false),

		VotingTokenTTL:             envDuration("VOTING_TOKEN_TTL", 5*time.Minute),
		AllowUnregisteredElections: envBool("ALLOW_UNREGISTERED_ELECTIONS", true),

		CodeRequestWindow:      envDuration("CODE_REQUEST_WINDOW", 15*time.Minute),
		CodeRequestMaxAttempts: envInt("CODE_REQUEST_MAX_ATTEMPTS", 3),
		CodeTTL:                envDuration("CODE_TTL", 5*time.Minute),
		CodeVerifyMaxAttempts:  envInt("CODE_VERIFY_MAX_ATTEMPTS", 5),
		LoginWindow:            envDuration("LOGIN_WINDOW", 15*time.Minute),
		LoginMaxAttempts:       envInt("LOGIN_MAX_ATTEMPTS", 5),

		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		SweepBatchSize:     envInt("SWEEP_BATCH_SIZE", 500),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	durations := map[string]time.Duration{
		"VOTING_TOKEN_TTL":     c.VotingTokenTTL,
		"CODE_REQUEST_WINDOW":  c.CodeRequestWindow,
		"CODE_TTL":             c.CodeTTL,
		"LOGIN_WINDOW":         c.LoginWindow,
		"WORKER_POLL_INTERVAL": c.WorkerPollInterval,
	}
	for name, value := range durations {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	limits := map[string]int{
		"CODE_REQUEST_MAX_ATTEMPTS": c.CodeRequestMaxAttempts,
		"CODE_VERIFY_MAX_ATTEMPTS":  c.CodeVerifyMaxAttempts,
		"LOGIN_MAX_ATTEMPTS":        c.LoginMaxAttempts,
		"SWEEP_BATCH_SIZE":          c.SweepBatchSize,
	}
	for name, value := range limits {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

// envDuration accepts Go duration strings ("90s", "5m") or bare seconds.
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	if value, err := time.ParseDuration(raw); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
