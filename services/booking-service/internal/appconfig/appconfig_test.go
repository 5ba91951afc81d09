package appconfig

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8083" || cfg.Connector != ConnectorNone || cfg.Location != time.UTC {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Defaults.MaxAdvanceDays != 60 || cfg.Mirror.Workers != 2 || cfg.Mirror.DrainTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadCollectsErrors(t *testing.T) {
	t.Setenv("PORT", "0")
	t.Setenv("DEFAULT_BUFFER_AFTER_MINUTES", "-5")
	t.Setenv("CALENDAR_CONNECTOR", "caldav")
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"PORT", "default constraints", "CALDAV_URL", "TIMEZONE"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoadKafkaConnector(t *testing.T) {
	t.Setenv("CALENDAR_CONNECTOR", "Kafka")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")
	t.Setenv("TIMEZONE", "Europe/Berlin")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Connector != ConnectorKafka || cfg.Kafka.CreateTopic != "calendar.event.create.v1" {
		t.Fatalf("unexpected kafka config %+v", cfg.Kafka)
	}
	if cfg.Location.String() != "Europe/Berlin" {
		t.Fatalf("unexpected location %s", cfg.Location)
	}
}
