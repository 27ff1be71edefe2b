// internal/ideas/ideas.go
//
// "Design your own game" submissions from the lead capture form.
// Responsibilities:
//   - Validate a submission (at least one field, bounded lengths).
//   - Store it as a JSON document with a generated id.
//   - List the most recent submissions.

package ideas

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultRecent is how many submissions Recent returns when asked for none.
	DefaultRecent = 5
	MaxRecent     = 50

	// MaxFieldLen bounds each free-text field, in bytes.
	MaxFieldLen = 2000
)

var (
	ErrEmpty   = errors.New("submission is empty")
	ErrTooLong = errors.New("submission field too long")
)

// Submission is the form payload.
type Submission struct {
	Hero        string `json:"hero" schema:"hero"`
	Villain     string `json:"villain" schema:"villain"`
	Gameplay    string `json:"gameplay" schema:"gameplay"`
	Setting     string `json:"setting" schema:"setting"`
	MathTopic   string `json:"mathTopic" schema:"mathTopic"`
	ContactInfo string `json:"contactInfo" schema:"contactInfo"`
}

func (s Submission) fields() map[string]string {
	return map[string]string{
		"hero":        s.Hero,
		"villain":     s.Villain,
		"gameplay":    s.Gameplay,
		"setting":     s.Setting,
		"mathTopic":   s.MathTopic,
		"contactInfo": s.ContactInfo,
	}
}

// Normalize trims surrounding whitespace from every field.
func (s Submission) Normalize() Submission {
	return Submission{
		Hero:        strings.TrimSpace(s.Hero),
		Villain:     strings.TrimSpace(s.Villain),
		Gameplay:    strings.TrimSpace(s.Gameplay),
		Setting:     strings.TrimSpace(s.Setting),
		MathTopic:   strings.TrimSpace(s.MathTopic),
		ContactInfo: strings.TrimSpace(s.ContactInfo),
	}
}

// Validate reports ErrEmpty or ErrTooLong.
func (s Submission) Validate() error {
	empty := true
	for name, v := range s.fields() {
		if len(v) > MaxFieldLen {
			return fmt.Errorf("%w: %s", ErrTooLong, name)
		}
		if strings.TrimSpace(v) != "" {
			empty = false
		}
	}
	if empty {
		return ErrEmpty
	}
	return nil
}

// Entry is a stored submission.
type Entry struct {
	ID        string     `json:"id"`
	Data      Submission `json:"formData"`
	CreatedAt string     `json:"createdAt"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Save validates and stores sub, returning its id.
func (s *Store) Save(ctx context.Context, sub Submission) (string, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO form_submissions(id, form_data) VALUES(?, ?)`, id, string(data),
	); err != nil {
		return "", fmt.Errorf("insert submission: %w", err)
	}
	return id, nil
}

// Recent returns up to limit submissions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}
	limit = min(limit, MaxRecent)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, form_data, created_at FROM form_submissions
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e   Entry
			raw string
		)
		if err := rows.Scan(&e.ID, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &e.Data); err != nil {
			return nil, fmt.Errorf("decode submission %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
