package domain

import "time"

// User represents an authenticated account within the platform.
type User struct {
	ID        string
	Email     string
	Name      string
	Locale    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Streak holds a user's consecutive-day activity counters. Updated as a
// best-effort side effect after a successful appraisal; a lost increment
// under concurrent completions is accepted.
type Streak struct {
	Current      int
	Longest      int
	LastActivity *time.Time
}
