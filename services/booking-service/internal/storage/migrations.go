package storage

import (
	"context"

	"github.com/md-rashed-zaman/slotbook/libs/db"
)

// meeting_definitions and availability_windows are written by the configuration service;
// the engine only reads them. bookings is owned here.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS meeting_definitions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS availability_windows (
	id BIGSERIAL PRIMARY KEY,
	meeting_id TEXT NOT NULL REFERENCES meeting_definitions(id) ON DELETE CASCADE,
	day_of_week SMALLINT NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
	start_minute INTEGER NOT NULL CHECK (start_minute >= 0),
	end_minute INTEGER NOT NULL CHECK (end_minute <= 1440),
	CHECK (start_minute < end_minute)
);

CREATE INDEX IF NOT EXISTS idx_availability_windows_meeting ON availability_windows(meeting_id, day_of_week);

CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	meeting_id TEXT NOT NULL REFERENCES meeting_definitions(id),
	booker_name TEXT NOT NULL,
	booker_email TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('confirmed', 'cancelled', 'no_show')),
	external_event_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	status_changed_at TIMESTAMPTZ,
	CHECK (start_time < end_time)
);

CREATE INDEX IF NOT EXISTS idx_bookings_confirmed_range
	ON bookings(meeting_id, start_time)
	WHERE status = 'confirmed';
`

func Migrate(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
