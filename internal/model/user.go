// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// StartingLevel is the level every new account begins at.
const StartingLevel = 1

// User is a registered account together with its gamification progress.
//
// Email is stored lower-cased so uniqueness is case-insensitive.
// PasswordHash is empty for accounts created through GitHub sign-in; such
// accounts can never pass a password login.
// Achievements behaves as an ordered set: insertion order is preserved and a
// name is never stored twice (see AddAchievement).
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"-"`
	Points       int       `json:"points"`
	Level        int       `json:"level"`
	Achievements []string  `json:"achievements"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is what the API returns for the caller's own account.
type PublicUser struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Points       int      `json:"points"`
	Level        int      `json:"level"`
	Achievements []string `json:"achievements"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		Points:       u.Points,
		Level:        u.Level,
		Achievements: nonNil(u.Achievements),
	}
}

// Username is the local part of the email, used as the public display name.
func (u *User) Username() string {
	if i := strings.IndexByte(u.Email, '@'); i >= 0 {
		return u.Email[:i]
	}
	return u.Email
}

// HasAchievement reports whether name is already recorded.
func (u *User) HasAchievement(name string) bool {
	for _, a := range u.Achievements {
		if a == name {
			return true
		}
	}
	return false
}

// AddAchievement appends name unless it is already present.
// Returns true if the set changed.
func (u *User) AddAchievement(name string) bool {
	if name == "" || u.HasAchievement(name) {
		return false
	}
	u.Achievements = append(u.Achievements, name)
	return true
}

// LeaderboardEntry is the public projection shown on the leaderboard.
// It deliberately omits the email and id.
type LeaderboardEntry struct {
	Username     string   `json:"username"`
	Points       int      `json:"points"`
	Level        int      `json:"level"`
	Achievements []string `json:"achievements"`
}

func (u *User) LeaderboardEntry() LeaderboardEntry {
	return LeaderboardEntry{
		Username:     u.Username(),
		Points:       u.Points,
		Level:        u.Level,
		Achievements: nonNil(u.Achievements),
	}
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// nonNil keeps JSON output as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// LeaderboardPage is one page of the public leaderboard.
type LeaderboardPage struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Pagination  Pagination         `json:"pagination"`
}
