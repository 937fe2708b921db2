package checkins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/healthtrace/internal/db"
)

// Store provides persistence for check-ins and their symptoms.
type Store struct {
	db *db.DB
}

// NewStore creates a new check-in store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

const checkinColumns = `id, user_id, transcript, summary, mood, energy, source, embedding, created_at`

// Create inserts a check-in and its symptoms. ID and CreatedAt are filled in
// when empty; symptom names are normalized and de-duplicated.
func (s *Store) Create(ctx context.Context, c *CheckIn) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Source == "" {
		c.Source = SourceText
	}
	c.Symptoms = normalizeSymptoms(c.Symptoms)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkins (`+checkinColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Transcript, c.Summary, c.Mood, c.Energy, string(c.Source),
		db.EncodeVector(c.Embedding), db.Millis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("creating check-in: %w", err)
	}

	for _, sym := range c.Symptoms {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checkin_symptoms (checkin_id, name, severity) VALUES (?, ?, ?)`,
			c.ID, sym.Name, sym.Severity,
		); err != nil {
			return fmt.Errorf("adding symptom %q: %w", sym.Name, err)
		}
	}

	return tx.Commit()
}

// Get returns a check-in by ID, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*CheckIn, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+checkinColumns+` FROM checkins WHERE id = ?`, id)
	c, err := scanCheckIn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting check-in: %w", err)
	}

	list := []CheckIn{*c}
	if err := s.attachSymptoms(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns a user's most recent check-ins, newest first. limit <= 0
// returns all of them.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]CheckIn, error) {
	q := `SELECT ` + checkinColumns + ` FROM checkins WHERE user_id = ? ORDER BY created_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, q, args...)
}

// ListEmbeddedSince returns the user's check-ins created at or after since
// that carry an embedding, oldest first.
func (s *Store) ListEmbeddedSince(ctx context.Context, userID string, since time.Time) ([]CheckIn, error) {
	return s.query(ctx,
		`SELECT `+checkinColumns+` FROM checkins
		 WHERE user_id = ? AND created_at >= ? AND embedding IS NOT NULL
		 ORDER BY created_at ASC, id`,
		userID, db.Millis(since),
	)
}

// SetEmbedding stores the embedding for an existing check-in.
func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE checkins SET embedding = ? WHERE id = ?`, db.EncodeVector(embedding), id)
	if err != nil {
		return fmt.Errorf("setting embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a check-in and its symptoms.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkins WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting check-in: %w", err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing check-ins: %w", err)
	}
	defer rows.Close()

	var result []CheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning check-in: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := s.attachSymptoms(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// attachSymptoms loads symptoms for all check-ins in one query.
func (s *Store) attachSymptoms(ctx context.Context, list []CheckIn) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[string]int, len(list))
	args := make([]any, len(list))
	for i := range list {
		index[list[i].ID] = i
		args[i] = list[i].ID
		list[i].Symptoms = []Symptom{}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(list)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT checkin_id, name, severity FROM checkin_symptoms
		 WHERE checkin_id IN (`+placeholders+`) ORDER BY checkin_id, name`, args...)
	if err != nil {
		return fmt.Errorf("loading symptoms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var sym Symptom
		if err := rows.Scan(&id, &sym.Name, &sym.Severity); err != nil {
			return fmt.Errorf("scanning symptom: %w", err)
		}
		if i, ok := index[id]; ok {
			list[i].Symptoms = append(list[i].Symptoms, sym)
		}
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckIn(sc scanner) (*CheckIn, error) {
	var (
		c         CheckIn
		source    string
		embedding []byte
		created   int64
	)
	if err := sc.Scan(&c.ID, &c.UserID, &c.Transcript, &c.Summary, &c.Mood, &c.Energy,
		&source, &embedding, &created); err != nil {
		return nil, err
	}
	vec, err := db.DecodeVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("check-in %s: %w", c.ID, err)
	}
	c.Source = Source(source)
	c.Embedding = vec
	c.CreatedAt = db.FromMillis(created)
	return &c, nil
}

func normalizeSymptoms(in []Symptom) []Symptom {
	out := make([]Symptom, 0, len(in))
	seen := make(map[string]int, len(in))
	for _, s := range in {
		name := NormalizeSymptom(s.Name)
		if name == "" {
			continue
		}
		if i, ok := seen[name]; ok {
			out[i].Severity = max(out[i].Severity, s.Severity)
			continue
		}
		seen[name] = len(out)
		out = append(out, Symptom{Name: name, Severity: s.Severity})
	}
	return out
}
