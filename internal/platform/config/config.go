// Package config loads process configuration from the environment, with an
// optional YAML file overriding the compliance policy.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"vendorwatch/internal/vendors/models"
	strs "vendorwatch/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	AdminJWTSecret string
	LogLevel       string
}

type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers       []string
	AuditTopic    string
	RelayInterval time.Duration
	RelayBatch    int
}

type SMTP struct {
	Addr     string
	Username string
	Password string
	From     string
}

// Compliance holds run thresholds and the daily schedule.
type Compliance struct {
	MandatoryDocTypes []models.DocType
	ExpiringWindow    time.Duration
	ReviewSLA         time.Duration
	Concurrency       int
	RunTimeout        time.Duration
	ScheduleHour      int
	ScheduleMinute    int
	Timezone          string
	RunOnStart        bool
	PolicyFile        string
	SeedDemoData      bool
}

type Config struct {
	Server     Server
	Database   Database
	Redis      RedisConfig
	Kafka      Kafka
	SMTP       SMTP
	Compliance Compliance
}

// FromEnv builds the config from environment variables so main stays lean.
// When COMPLIANCE_POLICY_FILE is set, the file's values override the
// environment for the fields it sets.
func FromEnv() (Config, error) {
	e := &envReader{}

	cfg := Config{
		Server: Server{
			Addr:           e.str("VENDORWATCH_ADDR", ":8080"),
			AdminJWTSecret: e.str("ADMIN_JWT_SECRET", ""),
			LogLevel:       e.str("LOG_LEVEL", "info"),
		},
		Database: Database{
			URL:             e.str("DATABASE_URL", ""),
			MaxOpenConns:    e.int("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    e.int("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:       e.list("KAFKA_BROKERS"),
			AuditTopic:    e.str("AUDIT_TOPIC", "vendorwatch.audit"),
			RelayInterval: e.duration("OUTBOX_RELAY_INTERVAL", 2*time.Second),
			RelayBatch:    e.int("OUTBOX_RELAY_BATCH", 100),
		},
		SMTP: SMTP{
			Addr:     e.str("SMTP_ADDR", ""),
			Username: e.str("SMTP_USERNAME", ""),
			Password: e.str("SMTP_PASSWORD", ""),
			From:     e.str("SMTP_FROM", "compliance@vendorwatch.local"),
		},
		Compliance: Compliance{
			MandatoryDocTypes: docTypes(e.list("COMPLIANCE_MANDATORY_DOC_TYPES")),
			ExpiringWindow:    e.duration("COMPLIANCE_EXPIRING_WINDOW", 30*24*time.Hour),
			ReviewSLA:         e.duration("COMPLIANCE_REVIEW_SLA", 48*time.Hour),
			Concurrency:       e.int("COMPLIANCE_CONCURRENCY", 8),
			RunTimeout:        e.duration("COMPLIANCE_RUN_TIMEOUT", 10*time.Minute),
			ScheduleHour:      e.int("COMPLIANCE_SCHEDULE_HOUR", 9),
			ScheduleMinute:    e.int("COMPLIANCE_SCHEDULE_MINUTE", 0),
			Timezone:          e.str("COMPLIANCE_TIMEZONE", "Asia/Kolkata"),
			RunOnStart:        e.bool("COMPLIANCE_RUN_ON_START", true),
			PolicyFile:        e.str("COMPLIANCE_POLICY_FILE", ""),
			SeedDemoData:      e.bool("VENDORWATCH_SEED_DEMO", false),
		},
	}
	if len(cfg.Compliance.MandatoryDocTypes) == 0 {
		cfg.Compliance.MandatoryDocTypes = append([]models.DocType(nil), models.DefaultMandatoryDocTypes...)
	}

	if err := e.err(); err != nil {
		return Config{}, err
	}

	if cfg.Compliance.PolicyFile != "" {
		policy, err := LoadPolicyFile(cfg.Compliance.PolicyFile)
		if err != nil {
			return Config{}, err
		}
		policy.apply(&cfg.Compliance)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves the schedule timezone.
func (c Compliance) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) Validate() error {
	var errs []error
	if len(c.Compliance.MandatoryDocTypes) == 0 {
		errs = append(errs, errors.New("at least one mandatory document type is required"))
	}
	if c.Compliance.ScheduleHour < 0 || c.Compliance.ScheduleHour > 23 {
		errs = append(errs, fmt.Errorf("COMPLIANCE_SCHEDULE_HOUR must be 0-23, got %d", c.Compliance.ScheduleHour))
	}
	if c.Compliance.ScheduleMinute < 0 || c.Compliance.ScheduleMinute > 59 {
		errs = append(errs, fmt.Errorf("COMPLIANCE_SCHEDULE_MINUTE must be 0-59, got %d", c.Compliance.ScheduleMinute))
	}
	if _, err := c.Compliance.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Compliance.ExpiringWindow <= 0 {
		errs = append(errs, errors.New("COMPLIANCE_EXPIRING_WINDOW must be positive"))
	}
	if c.Compliance.ReviewSLA <= 0 {
		errs = append(errs, errors.New("COMPLIANCE_REVIEW_SLA must be positive"))
	}
	if c.Compliance.Concurrency < 1 {
		errs = append(errs, errors.New("COMPLIANCE_CONCURRENCY must be at least 1"))
	}
	if c.Compliance.RunTimeout <= 0 {
		errs = append(errs, errors.New("COMPLIANCE_RUN_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func docTypes(raw []string) []models.DocType {
	cleaned := strs.Normalize(raw, strings.ToUpper)
	out := make([]models.DocType, 0, len(cleaned))
	for _, r := range cleaned {
		out = append(out, models.DocType(r))
	}
	return out
}

// envReader collects parse errors so FromEnv can report all of them at once.
type envReader struct {
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *envReader) err() error {
	return errors.Join(e.errs...)
}
