// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package flashcards implements the per-user flashcard sets: listing the sets
// a user owns, reading the cards of one set, and saving generated sets.
package flashcards

import (
	"context"
	"time"

	"github.com/zeebo/errs"
)

var (
	// Error is the default error class for flashcards.
	Error = errs.Class("flashcards")

	// ErrValidation is the error class for invalid set names and cards.
	ErrValidation = errs.Class("invalid flashcards")

	// ErrUserNotFound is returned when the user has no record yet.
	ErrUserNotFound = Error.New("user not found")

	// ErrSetNotFound is returned when the user has no set with the given name.
	ErrSetNotFound = Error.New("flashcard set not found")

	// ErrSetExists is returned when saving a set under a name the user already uses.
	ErrSetExists = Error.New("flashcard collection with the same name already exists")
)

// Card is a single flashcard.
type Card struct {
	ID       string `json:"id,omitempty"`
	Front    string `json:"front"`
	Back     string `json:"back"`
	Position int    `json:"-"`
}

// SetSummary is an entry of the list of sets a user owns.
type SetSummary struct {
	Name string `json:"name"`
}

// Set is a named collection of cards.
type Set struct {
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
}

// User is the per-user flashcard record.
type User struct {
	ID        string
	Sets      []SetSummary
	CreatedAt time.Time
}

// HasSet returns whether the user owns a set called name.
func (user *User) HasSet(name string) bool {
	for _, set := range user.Sets {
		if set.Name == name {
			return true
		}
	}
	return false
}

// DB is the storage of flashcard users and sets.
//
// architecture: Database
type DB interface {
	// GetUser returns the user record, or ErrUserNotFound.
	GetUser(ctx context.Context, userID string) (User, error)
	// EnsureUser creates an empty user record when it does not exist and
	// returns the stored record.
	EnsureUser(ctx context.Context, userID string) (User, error)
	// ListCards returns the cards stored under the named set ordered by
	// position. A set without cards returns an empty slice.
	ListCards(ctx context.Context, userID, name string) ([]Card, error)
	// CreateSet appends the set to the user's list and stores its cards in a
	// single atomic operation. The user record is created when missing. It
	// returns ErrSetExists when the name is taken.
	CreateSet(ctx context.Context, userID string, set Set) error
	// DeleteSet removes the set from the user's list together with its
	// cards, or returns ErrSetNotFound.
	DeleteSet(ctx context.Context, userID, name string) error
}
