// Package audit keeps an append-only trail of completion calls in SQLite.
// Only metadata is stored: persona, provider, outcome, sizes and timing.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/opsagent/internal/domain/completion"
	"github.com/matiasleandrokruk/opsagent/internal/infra/eventbus"
	"github.com/matiasleandrokruk/opsagent/internal/infra/logger"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Subscriber is the part of the event bus the consumer needs.
type Subscriber interface {
	Subscribe(topic string) <-chan eventbus.Event
}

// Service writes and reads completion_event rows.
type Service struct {
	db    *sql.DB
	log   *slog.Logger
	newID func() string
}

// NewService returns a Service over a migrated database.
func NewService(db *sql.DB, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{db: db, log: log, newID: generateID}
}

// Log appends one event.
func (s *Service) Log(ctx context.Context, evt completion.FinishedEvent) error {
	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completion_event
			(id, persona, provider, model, outcome, error, input_bytes, output_bytes,
			 tokens, stop_reason, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.newID(),
		evt.Persona,
		evt.Provider,
		evt.Model,
		string(evt.Outcome),
		nullable(evt.Error),
		evt.InputBytes,
		evt.OutputBytes,
		evt.Tokens,
		evt.StopReason,
		evt.Duration.Milliseconds(),
		at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// List returns events newest first. limit <= 0 means DefaultLimit; it is capped at MaxLimit.
func (s *Service) List(ctx context.Context, limit, offset int) (Page, error) {
	limit, offset = clampPage(limit, offset)
	page := Page{Records: []Record{}, Limit: limit, Offset: offset}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM completion_event").Scan(&page.Total); err != nil {
		return Page{}, fmt.Errorf("audit: count events: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, persona, provider, model, outcome, error, input_bytes, output_bytes,
		       tokens, stop_reason, duration_ms, created_at
		FROM completion_event
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("audit: list events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return Page{}, fmt.Errorf("audit: scan event: %w", scanErr)
		}
		page.Records = append(page.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("audit: list events: %w", err)
	}
	return page, nil
}

// CountByOutcome returns the number of events per outcome, optionally for one persona.
func (s *Service) CountByOutcome(ctx context.Context, personaName string) (map[completion.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*)
		FROM completion_event
		WHERE ? = '' OR persona = ?
		GROUP BY outcome
	`, personaName, personaName)
	if err != nil {
		return nil, fmt.Errorf("audit: count by outcome: %w", err)
	}
	defer rows.Close()

	counts := map[completion.Outcome]int{
		completion.OutcomeSuccess: 0,
		completion.OutcomeError:   0,
	}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("audit: count by outcome: %w", err)
		}
		counts[completion.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

// Start consumes completion.TopicFinished events until ctx is done or the bus closes.
// The returned channel is closed once the consumer has stopped.
func (s *Service) Start(ctx context.Context, bus Subscriber) <-chan struct{} {
	events := bus.Subscribe(completion.TopicFinished)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				evt, isFinished := e.Payload.(completion.FinishedEvent)
				if !isFinished {
					s.log.Warn("audit: unexpected payload", "topic", e.Topic, "type", fmt.Sprintf("%T", e.Payload))
					continue
				}
				// Detached so a cancelled request context does not lose the row.
				if err := s.Log(context.WithoutCancel(ctx), evt); err != nil {
					s.log.Error("audit: persist event failed", "persona", evt.Persona, "error", err)
				}
			}
		}
	}()

	return done
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		outcome   string
		errText   sql.NullString
		createdAt string
	)
	if err := row.Scan(
		&rec.ID, &rec.Persona, &rec.Provider, &rec.Model, &outcome, &errText,
		&rec.InputBytes, &rec.OutputBytes, &rec.Tokens, &rec.StopReason, &rec.DurationMS, &createdAt,
	); err != nil {
		return Record{}, err
	}
	rec.Outcome = completion.Outcome(outcome)
	rec.Error = errText.String

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = t
	return rec, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// generateID returns a UUID v7 so ids sort by creation time.
func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
