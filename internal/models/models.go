// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and relationships.
//
// The data model is deliberately small:
//   - Users are synced lazily from Clerk the first time they call the API
//   - A Match stores its scoring snapshot (scoring.MatchState) as one JSON document
//   - MatchPoints are the append-only point-by-point log used for statistics
//
// The score itself is never stored column by column: the scoring engine owns the rules, the
// database just keeps the latest snapshot it produced.
package models

import (
	"time"

	// uuid provides universally unique identifiers for primary keys.
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/tennis-tracker/internal/scoring"
)

// --- Enums ---
// Named string types plus constants: type safety in Go, readable values in the database.

// UserRole represents a user's global permission level across the entire platform.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"   // Full access: manage users, matches, everything
	UserRoleManager UserRole = "manager" // Can run matches and close them out (forfeits)
	UserRoleUser    UserRole = "user"    // Regular player: can create and score their own matches
)

// MatchStatus tracks the lifecycle of a match.
type MatchStatus string

const (
	MatchStatusInProgress MatchStatus = "in_progress" // Points are still being recorded
	MatchStatusCompleted  MatchStatus = "completed"   // Won on the court
	MatchStatusForfeited  MatchStatus = "forfeited"   // Ended by retirement or walkover
)

// StatusFor derives the stored status from a scoring snapshot.
func StatusFor(s scoring.MatchState) MatchStatus {
	switch {
	case s.IsFinished && s.Forfeited:
		return MatchStatusForfeited
	case s.IsFinished:
		return MatchStatusCompleted
	default:
		return MatchStatusInProgress
	}
}

// --- Models ---
// Each struct below maps to a table: User -> users, Match -> matches, MatchPoint -> match_points.
// Primary keys are generated in BeforeCreate so the same models work on PostgreSQL and SQLite.

// User represents a registered person in the system.
// Users are created automatically the first time a Clerk-authenticated user hits the API.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClerkID     *string   `gorm:"uniqueIndex:idx_users_clerk_id"` // Clerk's user ID (e.g. "user_2abc123")
	DisplayName string    `gorm:"not null"`
	Email       string    `gorm:"uniqueIndex;not null"`
	Role        UserRole  `gorm:"type:varchar(16);not null;default:'user'"` // Synced from the JWT "role" claim
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Match is one tennis match between two named players.
//
// State holds the JSON-encoded scoring.MatchState the engine returned after the last
// accepted mutation. Status, Winner and EndedAt duplicate parts of it so list queries
// don't have to decode every snapshot.
type Match struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Format      string      `gorm:"type:varchar(32);not null"` // scoring.Format identifier, e.g. "BEST_OF_3"
	Player1Name string      `gorm:"not null"`
	Player2Name string      `gorm:"not null"`
	FirstServer string      `gorm:"type:varchar(16);not null"` // "PLAYER_1" or "PLAYER_2"
	Status      MatchStatus `gorm:"type:varchar(16);not null;default:'in_progress'"`
	State       string      `gorm:"type:jsonb;not null"`
	Winner      *string     `gorm:"type:varchar(16)"` // nil until the match is finished
	CreatedBy   *uuid.UUID  `gorm:"type:uuid"`        // nil for matches created by unauthenticated tools
	StartedAt   *time.Time  // First point played
	EndedAt     *time.Time  // Match finished
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Points      []MatchPoint `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns a UUID when the caller didn't.
func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MatchPoint records a single point. Sequence is 1-based and dense per match: the
// newest point always has the highest sequence, which is what undo removes.
type MatchPoint struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	MatchID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_match_point_seq"`
	Sequence      int       `gorm:"not null;uniqueIndex:idx_match_point_seq"`
	Winner        string    `gorm:"type:varchar(16);not null"`
	Outcome       string    `gorm:"type:varchar(16);not null;default:''"` // "" when not annotated
	Ace           bool      `gorm:"not null;default:false"`
	DoubleFault   bool      `gorm:"not null;default:false"`
	ServiceWinner bool      `gorm:"not null;default:false"`
	ServeNumber   int       `gorm:"not null;default:0"` // 1 or 2; 0 when not recorded
	RallyLength   int       `gorm:"not null;default:0"`
	PlayedAt      time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller didn't.
func (p *MatchPoint) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns a UUID when the caller didn't.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// NewMatchPoint converts an engine point detail into a row.
func NewMatchPoint(matchID uuid.UUID, seq int, d scoring.PointDetail) MatchPoint {
	return MatchPoint{
		MatchID:       matchID,
		Sequence:      seq,
		Winner:        string(d.Winner),
		Outcome:       string(d.Outcome),
		Ace:           d.Serve.Ace,
		DoubleFault:   d.Serve.DoubleFault,
		ServiceWinner: d.Serve.ServiceWinner,
		ServeNumber:   d.Serve.Serve,
		RallyLength:   d.RallyLength,
		PlayedAt:      d.Timestamp,
	}
}

// Detail converts a stored row back into an engine point detail.
func (p MatchPoint) Detail() scoring.PointDetail {
	return scoring.PointDetail{
		Winner:  scoring.Player(p.Winner),
		Outcome: scoring.Outcome(p.Outcome),
		Serve: scoring.ServeDetail{
			Ace:           p.Ace,
			DoubleFault:   p.DoubleFault,
			ServiceWinner: p.ServiceWinner,
			Serve:         p.ServeNumber,
		},
		RallyLength: p.RallyLength,
		Timestamp:   p.PlayedAt,
	}
}

// AllModels lists every model for AutoMigrate.
func AllModels() []any {
	return []any{&User{}, &Match{}, &MatchPoint{}}
}
