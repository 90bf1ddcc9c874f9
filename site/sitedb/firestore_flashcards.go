// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedb

import (
	"context"
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flashgen.io/flashgen/site/flashcards"
)

// ensure that firestoreFlashcards implements flashcards.DB.
var _ flashcards.DB = (*firestoreFlashcards)(nil)

type firestoreFlashcards struct {
	client *firestore.Client
}

func (fc *firestoreFlashcards) userRef(userID string) *firestore.DocumentRef {
	return fc.client.Collection(usersCollection).Doc(userID)
}

// GetUser returns the user document.
func (fc *firestoreFlashcards) GetUser(ctx context.Context, userID string) (_ flashcards.User, err error) {
	defer mon.Task()(&ctx)(&err)

	snap, err := fc.userRef(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return flashcards.User{}, flashcards.ErrUserNotFound
		}
		return flashcards.User{}, Error.Wrap(err)
	}

	doc, err := readUser(snap)
	if err != nil {
		return flashcards.User{}, err
	}
	return flashcards.User{
		ID:        userID,
		Sets:      setsOf(doc),
		CreatedAt: doc.CreatedAt,
	}, nil
}

// EnsureUser creates the user document with an empty set list when missing.
func (fc *firestoreFlashcards) EnsureUser(ctx context.Context, userID string) (_ flashcards.User, err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = fc.userRef(userID).Create(ctx, userDoc{
		Flashcards: []setDoc{},
		CreatedAt:  time.Now(),
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return flashcards.User{}, Error.Wrap(err)
	}
	return fc.GetUser(ctx, userID)
}

// ListCards returns the documents of the set collection ordered by position.
// Cards without a position follow the positioned ones in document order.
func (fc *firestoreFlashcards) ListCards(ctx context.Context, userID, name string) (_ []flashcards.Card, err error) {
	defer mon.Task()(&ctx)(&err)

	snaps, err := fc.userRef(userID).Collection(name).Documents(ctx).GetAll()
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var positioned, unpositioned []flashcards.Card
	for _, snap := range snaps {
		var doc cardDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, Error.Wrap(err)
		}
		card := flashcards.Card{
			ID:    snap.Ref.ID,
			Front: doc.Front,
			Back:  doc.Back,
		}
		if doc.Position == nil {
			unpositioned = append(unpositioned, card)
			continue
		}
		card.Position = *doc.Position
		positioned = append(positioned, card)
	}

	sort.SliceStable(positioned, func(i, k int) bool {
		return positioned[i].Position < positioned[k].Position
	})

	next := 0
	if len(positioned) > 0 {
		next = positioned[len(positioned)-1].Position + 1
	}
	for i := range unpositioned {
		unpositioned[i].Position = next + i
	}

	return append(positioned, unpositioned...), nil
}

// CreateSet appends the set name to the user document and writes every card
// to the set collection in one transaction.
func (fc *firestoreFlashcards) CreateSet(ctx context.Context, userID string, set flashcards.Set) (err error) {
	defer mon.Task()(&ctx)(&err)

	userRef := fc.userRef(userID)
	err = fc.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		update := map[string]interface{}{}

		var doc userDoc
		snap, err := tx.Get(userRef)
		switch {
		case isNotFound(err):
			update["createdAt"] = time.Now()
		case err != nil:
			return err
		default:
			if doc, err = readUser(snap); err != nil {
				return err
			}
		}

		for _, existing := range doc.Flashcards {
			if existing.Name == set.Name {
				return flashcards.ErrSetExists
			}
		}

		update["flashcards"] = append(doc.Flashcards, setDoc{Name: set.Name})
		if err := tx.Set(userRef, update, firestore.MergeAll); err != nil {
			return err
		}

		collection := userRef.Collection(set.Name)
		for _, card := range set.Cards {
			position := card.Position
			err := tx.Create(collection.Doc(card.ID), cardDoc{
				Front:    card.Front,
				Back:     card.Back,
				Position: &position,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, flashcards.ErrSetExists) {
		return flashcards.ErrSetExists
	}
	return Error.Wrap(err)
}

// DeleteSet removes the set name from the user document and deletes the
// card documents in one transaction.
func (fc *firestoreFlashcards) DeleteSet(ctx context.Context, userID, name string) (err error) {
	defer mon.Task()(&ctx)(&err)

	userRef := fc.userRef(userID)
	err = fc.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(userRef)
		if err != nil {
			if isNotFound(err) {
				return flashcards.ErrSetNotFound
			}
			return err
		}
		doc, err := readUser(snap)
		if err != nil {
			return err
		}

		remaining := make([]setDoc, 0, len(doc.Flashcards))
		for _, set := range doc.Flashcards {
			if set.Name != name {
				remaining = append(remaining, set)
			}
		}
		if len(remaining) == len(doc.Flashcards) {
			return flashcards.ErrSetNotFound
		}

		cards, err := tx.Documents(userRef.Collection(name)).GetAll()
		if err != nil {
			return err
		}

		if err := tx.Set(userRef, map[string]interface{}{"flashcards": remaining}, firestore.MergeAll); err != nil {
			return err
		}
		for _, card := range cards {
			if err := tx.Delete(card.Ref); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, flashcards.ErrSetNotFound) {
		return flashcards.ErrSetNotFound
	}
	return Error.Wrap(err)
}
