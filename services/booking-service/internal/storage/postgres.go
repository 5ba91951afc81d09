package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// PostgresStore keeps the ledger in Postgres. Commits for one meeting are serialized with a
// transaction-scoped advisory lock keyed by the meeting id, which also holds across replicas.
type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const bookingColumns = `id::text, meeting_id, booker_name, booker_email, notes,
	start_time, end_time, status, COALESCE(external_event_id, ''), created_at, status_changed_at`

func (s *PostgresStore) GetMeeting(ctx context.Context, meetingID string) (model.MeetingDefinition, error) {
	var m model.MeetingDefinition
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes
		FROM meeting_definitions
		WHERE id = $1
	`, meetingID).Scan(&m.ID, &m.Name, &m.DurationMinutes)
	if err != nil {
		return model.MeetingDefinition{}, notFound(err, "meeting", meetingID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT day_of_week, start_minute, end_minute
		FROM availability_windows
		WHERE meeting_id = $1
		ORDER BY day_of_week, start_minute
	`, meetingID)
	if err != nil {
		return model.MeetingDefinition{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var w model.AvailabilityWindow
		if err := rows.Scan(&w.DayOfWeek, &w.StartMinute, &w.EndMinute); err != nil {
			return model.MeetingDefinition{}, err
		}
		m.Windows = append(m.Windows, w)
	}
	if rows.Err() != nil {
		return model.MeetingDefinition{}, rows.Err()
	}
	return m, nil
}

func (s *PostgresStore) GetBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	if err := checkBookingID(bookingID); err != nil {
		return model.Booking{}, err
	}
	b, err := scanBooking(s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID))
	if err != nil {
		return model.Booking{}, notFound(err, "booking", bookingID)
	}
	return b, nil
}

func (s *PostgresStore) ListConfirmed(ctx context.Context, meetingID string, from, to time.Time) ([]model.Booking, error) {
	return listConfirmed(ctx, s.pool, meetingID, from, to)
}

func listConfirmed(ctx context.Context, q querier, meetingID string, from, to time.Time) ([]model.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE meeting_id = $1
			AND status = 'confirmed'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, meetingID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

func (s *PostgresStore) WithMeetingLock(ctx context.Context, meetingID string, fn func(ctx context.Context, tx Tx) error) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, meetingID); err != nil {
			return fmt.Errorf("lock meeting %s: %w", meetingID, err)
		}
		return fn(ctx, &postgresTx{tx: tx})
	})
}

func (s *PostgresStore) UpdateBooking(ctx context.Context, bookingID string, fn func(b *model.Booking) error) (model.Booking, error) {
	if err := checkBookingID(bookingID); err != nil {
		return model.Booking{}, err
	}
	var updated model.Booking
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID))
		if err != nil {
			return notFound(err, "booking", bookingID)
		}
		if err := fn(&b); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE bookings
			SET status = $2,
				status_changed_at = $3,
				external_event_id = NULLIF($4, '')
			WHERE id = $1
		`, bookingID, string(b.Status), b.StatusChangedAt, b.ExternalEventID)
		if err != nil {
			return err
		}
		updated = b
		return nil
	})
	return updated, err
}

func (s *PostgresStore) SetExternalEventID(ctx context.Context, bookingID, eventID string) (model.Booking, error) {
	if err := checkBookingID(bookingID); err != nil {
		return model.Booking{}, err
	}
	b, err := scanBooking(s.pool.QueryRow(ctx, `
		UPDATE bookings
		SET external_event_id = $2
		WHERE id = $1
		RETURNING `+bookingColumns, bookingID, eventID))
	if err != nil {
		return model.Booking{}, notFound(err, "booking", bookingID)
	}
	return b, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return db.ReadyCheck(s.pool)(ctx)
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) ListConfirmed(ctx context.Context, meetingID string, from, to time.Time) ([]model.Booking, error) {
	return listConfirmed(ctx, t.tx, meetingID, from, to)
}

func (t *postgresTx) InsertBooking(ctx context.Context, b model.Booking) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bookings
			(id, meeting_id, booker_name, booker_email, notes, start_time, end_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, b.ID, b.MeetingID, b.Booker.Name, b.Booker.Email, b.Booker.Notes,
		b.StartTime, b.EndTime, string(b.Status), b.CreatedAt)
	return err
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	var changedAt *time.Time
	err := row.Scan(
		&b.ID,
		&b.MeetingID,
		&b.Booker.Name,
		&b.Booker.Email,
		&b.Booker.Notes,
		&b.StartTime,
		&b.EndTime,
		&status,
		&b.ExternalEventID,
		&b.CreatedAt,
		&changedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.Status(status)
	b.StatusChangedAt = changedAt
	return b, nil
}

// checkBookingID keeps malformed ids from reaching the uuid column as a cast error.
func checkBookingID(bookingID string) error {
	if _, err := uuid.Parse(bookingID); err != nil {
		return fmt.Errorf("booking %q: %w", bookingID, ErrNotFound)
	}
	return nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}

var _ Store = (*PostgresStore)(nil)
