package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/wecombot/internal/db"
)

// ErrNotFound is returned by GetByID for an unknown event id.
var ErrNotFound = errors.New("not found")

// Store persists callback events and their deliveries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// RecordEvent inserts an event. It returns false, without error, when an
// event with the same channel and MsgID already exists, which is how
// provider retries are detected. Empty ID and MsgID are filled with UUIDs.
func (s *Store) RecordEvent(ctx context.Context, e *Event) (bool, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.MsgID == "" {
		e.MsgID = uuid.New().String()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO callback_events (
			id, channel, msg_id, msg_type, chat_id, chat_type, user_id, outcome
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel, msg_id) DO NOTHING`,
		e.ID, e.Channel, e.MsgID, e.MsgType, e.ChatID, e.ChatType, e.UserID, string(e.Outcome),
	)
	if err != nil {
		return false, fmt.Errorf("inserting callback event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking inserted event: %w", err)
	}
	return n == 1, nil
}

// SetOutcome updates the outcome of an event.
func (s *Store) SetOutcome(ctx context.Context, id string, outcome Outcome) error {
	res, err := s.db.ExecContext(ctx, "UPDATE callback_events SET outcome = ? WHERE id = ?", string(outcome), id)
	if err != nil {
		return fmt.Errorf("updating event outcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s not found", id)
	}
	return nil
}

// RecordDelivery inserts a delivery result. If d.ID is empty a UUID is generated.
func (s *Store) RecordDelivery(ctx context.Context, d Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	ok := 0
	if d.OK {
		ok = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, event_id, channel, chat_id, ok, runner, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.EventID, d.Channel, d.ChatID, ok, d.Runner, d.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting delivery: %w", err)
	}
	return nil
}

// GetByID retrieves a single event together with its deliveries.
func (s *Store) GetByID(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, received_at, channel, msg_id, msg_type, chat_id, chat_type, user_id, outcome
		FROM callback_events WHERE id = ?`, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading event %s: %w", id, err)
	}
	e.Deliveries, err = s.Deliveries(ctx, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Deliveries lists the deliveries of an event, oldest first.
func (s *Store) Deliveries(ctx context.Context, eventID string) ([]Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, delivered_at, channel, chat_id, ok, runner, detail
		FROM deliveries WHERE event_id = ? ORDER BY delivered_at, rowid`, eventID)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var (
			d  Delivery
			ts string
			ok int
		)
		if err := rows.Scan(&d.ID, &d.EventID, &ts, &d.Channel, &d.ChatID, &ok, &d.Runner, &d.Detail); err != nil {
			return nil, err
		}
		d.DeliveredAt = parseTime(ts)
		d.OK = ok == 1
		out = append(out, d)
	}
	return out, rows.Err()
}

// QueryFilter controls which events are returned by Query.
type QueryFilter struct {
	Channel string
	ChatID  string
	Outcome Outcome
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Offset  int
}

// Query returns events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Channel != "" {
		clauses = append(clauses, "channel = ?")
		args = append(args, filter.Channel)
	}
	if filter.ChatID != "" {
		clauses = append(clauses, "chat_id = ?")
		args = append(args, filter.ChatID)
	}
	if filter.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.Since != nil {
		clauses = append(clauses, "received_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if filter.Until != nil {
		clauses = append(clauses, "received_at <= ?")
		args = append(args, filter.Until.UTC().Format(time.DateTime))
	}

	query := "SELECT id, received_at, channel, msg_id, msg_type, chat_id, chat_type, user_id, outcome FROM callback_events"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY received_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying callback events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// DeleteBefore removes all events older than the given time, along with
// their deliveries. Returns the number of deleted events.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	cutoff := before.UTC().Format(time.DateTime)
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM deliveries WHERE event_id IN (SELECT id FROM callback_events WHERE received_at < ?)", cutoff,
	); err != nil {
		return 0, fmt.Errorf("deleting old deliveries: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM callback_events WHERE received_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old callback events: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (*Event, error) {
	var (
		e       Event
		ts      string
		outcome string
	)
	err := sc.Scan(&e.ID, &ts, &e.Channel, &e.MsgID, &e.MsgType, &e.ChatID, &e.ChatType, &e.UserID, &outcome)
	if err != nil {
		return nil, err
	}
	e.ReceivedAt = parseTime(ts)
	e.Outcome = Outcome(outcome)
	return &e, nil
}

func parseTime(ts string) time.Time {
	if t, err := time.Parse(time.DateTime, ts); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t
	}
	return time.Time{}
}
