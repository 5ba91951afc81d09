// Package appconfig assembles the booking-service configuration from the environment.
package appconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const (
	ConnectorNone   = "none"
	ConnectorCalDAV = "caldav"
	ConnectorKafka  = "kafka"
)

type Config struct {
	Service  string
	Port     string
	GRPCPort string
	LogLevel string

	DatabaseURL string
	DBMaxConns  int
	AutoMigrate bool

	// Location is the reference timezone for availability windows and date parameters.
	Location *time.Location
	Defaults model.Constraints

	BodyLimitBytes int64
	RequestTimeout time.Duration
	CORSOrigins    []string
	AuthJWTSecret  string

	RedisURL        string
	RateLimit       int
	RateLimitWindow time.Duration

	Connector string
	CalDAV    calendar.CalDAVConfig
	Kafka     calendar.KafkaConfig
	Mirror    calendar.MirrorConfig
}

// Load reads every setting and reports all malformed values at once.
func Load() (Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		n, err := config.Int(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}
	durationVar := func(key string, fallback time.Duration) time.Duration {
		d, err := config.Duration(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	cfg := Config{
		Service:  config.String("SERVICE_NAME", "booking-service"),
		LogLevel: config.String("LOG_LEVEL", "info"),

		DatabaseURL: config.String("DATABASE_URL", ""),
		DBMaxConns:  intVar("DB_MAX_CONNS", 10),
		AutoMigrate: config.Bool("DB_AUTO_MIGRATE", false),

		Defaults: model.Constraints{
			BufferBeforeMinutes: intVar("DEFAULT_BUFFER_BEFORE_MINUTES", 0),
			BufferAfterMinutes:  intVar("DEFAULT_BUFFER_AFTER_MINUTES", 0),
			MinAdvanceHours:     intVar("DEFAULT_MIN_ADVANCE_HOURS", 0),
			MaxAdvanceDays:      intVar("DEFAULT_MAX_ADVANCE_DAYS", 60),
		},

		BodyLimitBytes: int64(intVar("HTTP_BODY_LIMIT_BYTES", 64<<10)),
		RequestTimeout: durationVar("HTTP_REQUEST_TIMEOUT", 15*time.Second),
		CORSOrigins:    config.List("CORS_ALLOWED_ORIGINS", ""),
		AuthJWTSecret:  config.String("AUTH_JWT_SECRET", ""),

		RedisURL:        config.String("REDIS_URL", ""),
		RateLimit:       intVar("PUBLIC_RATE_LIMIT", 60),
		RateLimitWindow: durationVar("PUBLIC_RATE_LIMIT_WINDOW", time.Minute),

		Connector: strings.ToLower(config.String("CALENDAR_CONNECTOR", ConnectorNone)),
		CalDAV: calendar.CalDAVConfig{
			BaseURL:  config.String("CALDAV_URL", ""),
			Username: config.String("CALDAV_USERNAME", ""),
			Password: config.String("CALDAV_PASSWORD", ""),
			Timeout:  durationVar("CALDAV_TIMEOUT", 5*time.Second),
		},
		Kafka: calendar.KafkaConfig{
			Brokers:     config.String("KAFKA_BROKERS", ""),
			CreateTopic: config.String("KAFKA_CALENDAR_CREATE_TOPIC", calendar.DefaultCreateTopic),
			DeleteTopic: config.String("KAFKA_CALENDAR_DELETE_TOPIC", calendar.DefaultDeleteTopic),
		},
		Mirror: calendar.MirrorConfig{
			QueueSize:    intVar("CALENDAR_QUEUE_SIZE", 256),
			Workers:      intVar("CALENDAR_WORKERS", 2),
			CallTimeout:  durationVar("CALENDAR_CALL_TIMEOUT", 10*time.Second),
			DrainTimeout: durationVar("CALENDAR_DRAIN_TIMEOUT", 5*time.Second),
		},
	}

	var err error
	if cfg.Port, err = config.Port("PORT", "8083"); err != nil {
		errs = append(errs, err)
	}
	if grpcPort := config.String("GRPC_PORT", ""); grpcPort != "" {
		if cfg.GRPCPort, err = config.Port("GRPC_PORT", ""); err != nil {
			errs = append(errs, err)
		}
	}

	tz := config.String("TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", tz, err))
	}
	if err := cfg.Defaults.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("default constraints: %w", err))
	}

	switch cfg.Connector {
	case ConnectorNone:
	case ConnectorCalDAV:
		if cfg.CalDAV.BaseURL == "" {
			errs = append(errs, errors.New("CALDAV_URL is required when CALENDAR_CONNECTOR=caldav"))
		}
	case ConnectorKafka:
		if cfg.Kafka.Brokers == "" {
			errs = append(errs, errors.New("KAFKA_BROKERS is required when CALENDAR_CONNECTOR=kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("CALENDAR_CONNECTOR must be one of none, caldav, kafka (got %q)", cfg.Connector))
	}

	return cfg, errors.Join(errs...)
}
