// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package flashcards

import (
	"context"
	"errors"

	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"

	"storj.io/common/uuid"
)

var mon = monkit.Package()

// Config contains the limits applied to stored sets.
type Config struct {
	MaxCards int `help:"maximum number of cards in a single flashcard set" default:"100"`
}

// Service implements the flashcard operations for signed-in users.
//
// architecture: Service
type Service struct {
	log    *zap.Logger
	db     DB
	config Config
}

// NewService creates a new flashcards service.
func NewService(log *zap.Logger, db DB, config Config) *Service {
	return &Service{
		log:    log,
		db:     db,
		config: config,
	}
}

// ListSets returns the sets owned by the user. A user without a record gets
// an empty one created.
func (service *Service) ListSets(ctx context.Context, userID string) (_ []SetSummary, err error) {
	defer mon.Task()(&ctx)(&err)

	user, err := service.db.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		service.log.Debug("creating flashcard record", zap.String("user", userID))
		user, err = service.db.EnsureUser(ctx, userID)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}

	if user.Sets == nil {
		return []SetSummary{}, nil
	}
	return user.Sets, nil
}

// GetSet returns the named set with its cards.
func (service *Service) GetSet(ctx context.Context, userID, name string) (_ Set, err error) {
	defer mon.Task()(&ctx)(&err)

	name = NormalizeName(name)
	if err := ValidateName(name); err != nil {
		return Set{}, err
	}

	user, err := service.db.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Set{}, ErrSetNotFound
		}
		return Set{}, Error.Wrap(err)
	}
	if !user.HasSet(name) {
		return Set{}, ErrSetNotFound
	}

	cards, err := service.db.ListCards(ctx, userID, name)
	if err != nil {
		return Set{}, Error.Wrap(err)
	}
	if cards == nil {
		cards = []Card{}
	}

	return Set{Name: name, Cards: cards}, nil
}

// SaveSet validates and stores a new set for the user.
func (service *Service) SaveSet(ctx context.Context, userID, name string, cards []Card) (_ Set, err error) {
	defer mon.Task()(&ctx)(&err)

	set, err := normalizeSet(name, cards, service.config.MaxCards)
	if err != nil {
		return Set{}, err
	}

	for i := range set.Cards {
		id, err := uuid.New()
		if err != nil {
			return Set{}, Error.Wrap(err)
		}
		set.Cards[i].ID = id.String()
	}

	if err := service.db.CreateSet(ctx, userID, set); err != nil {
		if errors.Is(err, ErrSetExists) {
			return Set{}, ErrSetExists
		}
		return Set{}, Error.Wrap(err)
	}

	service.log.Debug("saved flashcard set",
		zap.String("user", userID),
		zap.String("set", set.Name),
		zap.Int("cards", len(set.Cards)))

	return set, nil
}

// DeleteSet removes the named set.
func (service *Service) DeleteSet(ctx context.Context, userID, name string) (err error) {
	defer mon.Task()(&ctx)(&err)

	name = NormalizeName(name)
	if err := ValidateName(name); err != nil {
		return err
	}

	if err := service.db.DeleteSet(ctx, userID, name); err != nil {
		if errors.Is(err, ErrSetNotFound) {
			return ErrSetNotFound
		}
		return Error.Wrap(err)
	}
	return nil
}
