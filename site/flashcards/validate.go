// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package flashcards

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxNameLength is the longest set name accepted.
	MaxNameLength = 100
	// MaxSideLength is the longest front or back accepted.
	MaxSideLength = 1000
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type setInput struct {
	Name  string      `validate:"required,max=100,excludes=/,ne=.,ne=.."`
	Cards []cardInput `validate:"dive"`
}

type cardInput struct {
	Front string `validate:"required,max=1000"`
	Back  string `validate:"required,max=1000"`
}

// NormalizeName trims the set name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateName checks that name can be used as a set name. Names become
// document collection IDs, so path separators and reserved forms are
// rejected.
func ValidateName(name string) error {
	if err := validate.Var(name, "required,max=100,excludes=/,ne=.,ne=.."); err != nil {
		return ErrValidation.New("%s", describe("name", err))
	}
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return ErrValidation.New("name must not start and end with __")
	}
	return nil
}

// normalizeSet trims the set name and card sides and validates the result.
func normalizeSet(name string, cards []Card, maxCards int) (Set, error) {
	input := setInput{Name: NormalizeName(name)}
	for _, card := range cards {
		input.Cards = append(input.Cards, cardInput{
			Front: strings.TrimSpace(card.Front),
			Back:  strings.TrimSpace(card.Back),
		})
	}

	if err := ValidateName(input.Name); err != nil {
		return Set{}, err
	}
	if len(input.Cards) == 0 {
		return Set{}, ErrValidation.New("a set needs at least one card")
	}
	if maxCards > 0 && len(input.Cards) > maxCards {
		return Set{}, ErrValidation.New("a set can have at most %d cards", maxCards)
	}
	if err := validate.Struct(input); err != nil {
		return Set{}, ErrValidation.New("%s", describe("", err))
	}

	set := Set{Name: input.Name, Cards: make([]Card, 0, len(input.Cards))}
	for i, card := range input.Cards {
		set.Cards = append(set.Cards, Card{
			Front:    card.Front,
			Back:     card.Back,
			Position: i,
		})
	}
	return set, nil
}

// describe turns validator errors into a short message. field overrides the
// field name for single variable validation.
func describe(field string, err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}

	fe := fieldErrs[0]
	name := field
	if name == "" {
		name = strings.ToLower(fe.Namespace())
		name = strings.TrimPrefix(name, "setinput.")
	}

	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "max":
		return name + " must be at most " + fe.Param() + " characters"
	case "excludes":
		return name + " must not contain " + fe.Param()
	case "ne":
		return name + " must not be " + fe.Param()
	default:
		return name + " is invalid"
	}
}
