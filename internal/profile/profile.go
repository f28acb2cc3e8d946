// Package profile stores the local participant's identity and session
// history.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/piyushdolas8/skillswap/internal/database"
)

// ErrNotFound is returned when no profile has the requested id.
var ErrNotFound = errors.New("profile not found")

// Profile is one user's public identity.
type Profile struct {
	ID          string    `json:"id" yaml:"id"`
	DisplayName string    `json:"displayName" yaml:"displayName"`
	Bio         string    `json:"bio,omitempty" yaml:"bio,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
	TeachSkills []string  `json:"teachSkills" yaml:"teachSkills"`
	LearnSkills []string  `json:"learnSkills" yaml:"learnSkills"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Validate checks the fields a session needs.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id is required")
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return errors.New("display name is required")
	}
	return nil
}

// SessionRecord is one joined session.
type SessionRecord struct {
	Topic    string
	Partner  string
	JoinedAt time.Time
}

// Store reads and writes profiles.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore returns a Store on db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Get loads the profile with id.
func (s *Store) Get(ctx context.Context, id string) (Profile, error) {
	var (
		p            Profile
		teach, learn string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, bio, avatar_url, teach_skills, learn_skills, updated_at
		FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.DisplayName, &p.Bio, &p.AvatarURL, &teach, &learn, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if err := json.Unmarshal([]byte(teach), &p.TeachSkills); err != nil {
		return Profile{}, fmt.Errorf("decode teach skills: %w", err)
	}
	if err := json.Unmarshal([]byte(learn), &p.LearnSkills); err != nil {
		return Profile{}, fmt.Errorf("decode learn skills: %w", err)
	}
	return p, nil
}

// Upsert inserts or replaces p and returns it with UpdatedAt set.
func (s *Store) Upsert(ctx context.Context, p Profile) (Profile, error) {
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	p.TeachSkills = normalizeSkills(p.TeachSkills)
	p.LearnSkills = normalizeSkills(p.LearnSkills)
	p.UpdatedAt = s.now().UTC()

	teach, err := json.Marshal(p.TeachSkills)
	if err != nil {
		return Profile{}, err
	}
	learn, err := json.Marshal(p.LearnSkills)
	if err != nil {
		return Profile{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, display_name, bio, avatar_url, teach_skills, learn_skills, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			bio = excluded.bio,
			avatar_url = excluded.avatar_url,
			teach_skills = excluded.teach_skills,
			learn_skills = excluded.learn_skills,
			updated_at = excluded.updated_at`,
		p.ID, p.DisplayName, p.Bio, p.AvatarURL, string(teach), string(learn), p.UpdatedAt,
	)
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

// RecordSession appends to the profile's session history.
func (s *Store) RecordSession(ctx context.Context, profileID, topic, partner string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_history (topic, profile_id, partner, joined_at)
		VALUES (?, ?, ?, ?)`, topic, profileID, partner, s.now().UTC())
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// History returns the most recent sessions first.
func (s *Store) History(ctx context.Context, profileID string, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic, partner, joined_at FROM session_history
		WHERE profile_id = ? ORDER BY joined_at DESC LIMIT ?`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(&r.Topic, &r.Partner, &r.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// normalizeSkills trims, drops blanks and removes case-insensitive
// duplicates, keeping first spelling.
func normalizeSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
