// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zeebo/errs"

	"flashgen.io/flashgen/site/flashcards"
)

// ensure that sqliteFlashcards implements flashcards.DB.
var _ flashcards.DB = (*sqliteFlashcards)(nil)

type sqliteFlashcards struct {
	db *sql.DB
}

// GetUser returns the user record with its sets in creation order.
func (fc *sqliteFlashcards) GetUser(ctx context.Context, userID string) (_ flashcards.User, err error) {
	defer mon.Task()(&ctx)(&err)

	var createdAt int64
	err = fc.db.QueryRowContext(ctx, `SELECT created_at FROM users WHERE id = ?`, userID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return flashcards.User{}, flashcards.ErrUserNotFound
	}
	if err != nil {
		return flashcards.User{}, Error.Wrap(err)
	}

	user := flashcards.User{
		ID:        userID,
		CreatedAt: fromUnix(createdAt),
		Sets:      []flashcards.SetSummary{},
	}

	rows, err := fc.db.QueryContext(ctx, `
		SELECT name FROM flashcard_sets
		WHERE user_id = ?
		ORDER BY position`, userID)
	if err != nil {
		return flashcards.User{}, Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	for rows.Next() {
		var set flashcards.SetSummary
		if err := rows.Scan(&set.Name); err != nil {
			return flashcards.User{}, Error.Wrap(err)
		}
		user.Sets = append(user.Sets, set)
	}
	return user, Error.Wrap(rows.Err())
}

// EnsureUser creates the user record when it is missing.
func (fc *sqliteFlashcards) EnsureUser(ctx context.Context, userID string) (_ flashcards.User, err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = fc.db.ExecContext(ctx, `
		INSERT INTO users (id, created_at) VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING`, userID, toUnix(time.Now()))
	if err != nil {
		return flashcards.User{}, Error.Wrap(err)
	}
	return fc.GetUser(ctx, userID)
}

// ListCards returns the cards of the named set ordered by position.
func (fc *sqliteFlashcards) ListCards(ctx context.Context, userID, name string) (_ []flashcards.Card, err error) {
	defer mon.Task()(&ctx)(&err)

	rows, err := fc.db.QueryContext(ctx, `
		SELECT id, front, back, position FROM flashcards
		WHERE user_id = ? AND set_name = ?
		ORDER BY position`, userID, name)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	cards := []flashcards.Card{}
	for rows.Next() {
		var card flashcards.Card
		if err := rows.Scan(&card.ID, &card.Front, &card.Back, &card.Position); err != nil {
			return nil, Error.Wrap(err)
		}
		cards = append(cards, card)
	}
	return cards, Error.Wrap(rows.Err())
}

// CreateSet stores the set and its cards in one transaction.
func (fc *sqliteFlashcards) CreateSet(ctx context.Context, userID string, set flashcards.Set) (err error) {
	defer mon.Task()(&ctx)(&err)

	return withTx(ctx, fc.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, created_at) VALUES (?, ?)
			ON CONFLICT (id) DO NOTHING`, userID, toUnix(time.Now()))
		if err != nil {
			return Error.Wrap(err)
		}

		var exists int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM flashcard_sets
			WHERE user_id = ? AND name = ?`, userID, set.Name).Scan(&exists)
		if err != nil {
			return Error.Wrap(err)
		}
		if exists > 0 {
			return flashcards.ErrSetExists
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO flashcard_sets (user_id, name, position)
			SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM flashcard_sets WHERE user_id = ?`,
			userID, set.Name, userID)
		if err != nil {
			return Error.Wrap(err)
		}

		for _, card := range set.Cards {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO flashcards (user_id, set_name, id, position, front, back)
				VALUES (?, ?, ?, ?, ?, ?)`,
				userID, set.Name, card.ID, card.Position, card.Front, card.Back)
			if err != nil {
				return Error.Wrap(err)
			}
		}
		return nil
	})
}

// DeleteSet removes the set and its cards.
func (fc *sqliteFlashcards) DeleteSet(ctx context.Context, userID, name string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return withTx(ctx, fc.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM flashcard_sets WHERE user_id = ? AND name = ?`, userID, name)
		if err != nil {
			return Error.Wrap(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return Error.Wrap(err)
		}
		if affected == 0 {
			return flashcards.ErrSetNotFound
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM flashcards WHERE user_id = ? AND set_name = ?`, userID, name)
		return Error.Wrap(err)
	})
}
