// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package generator turns free text into flashcards with an OpenAI
// compatible chat completion model.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"flashgen.io/flashgen/site/flashcards"
)

var (
	// Error is the default error class for the generator.
	Error = errs.Class("generator")

	// ErrNotConfigured is returned when no model API key is configured.
	ErrNotConfigured = errs.Class("generator not configured")

	mon = monkit.Package()
)

const systemPrompt = `You are a flashcard creator. Take in text and create exactly %d flashcards from it.
Both front and back should be one sentence long.
Keep the flashcards concise and focused on the most important facts of the text.
Return the flashcards as JSON in the following format:
{"flashcards":[{"front":"Front of the card","back":"Back of the card"}]}`

// Config contains the model settings.
type Config struct {
	APIKey              string        `help:"API key of the chat completion service, empty disables generation" default:""`
	BaseURL             string        `help:"base URL of the OpenAI compatible API" default:"https://api.openai.com/v1"`
	Model               string        `help:"chat completion model" default:"gpt-4o-mini"`
	CardCount           int           `help:"number of flashcards generated per request" default:"10"`
	MaxInputLength      int           `help:"maximum number of characters of input text" default:"10000"`
	Timeout             time.Duration `help:"timeout of a single generation request" default:"60s"`
	RequireSubscription bool          `help:"only allow users with an active subscription to generate flashcards" default:"false"`
}

// Generator creates flashcards from text.
//
// architecture: Service
type Generator struct {
	log    *zap.Logger
	config Config
	client *openai.Client
}

// New creates a generator. A generator without an API key reports
// ErrNotConfigured on every request.
func New(log *zap.Logger, config Config) *Generator {
	generator := &Generator{log: log, config: config}
	if config.APIKey == "" {
		return generator
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	generator.client = openai.NewClientWithConfig(clientConfig)

	return generator
}

// Config returns the generator configuration.
func (generator *Generator) Config() Config { return generator.config }

// Configured returns whether generation is available.
func (generator *Generator) Configured() bool { return generator.client != nil }

type response struct {
	Flashcards []struct {
		Front string `json:"front"`
		Back  string `json:"back"`
	} `json:"flashcards"`
}

// Generate asks the model for flashcards about text.
func (generator *Generator) Generate(ctx context.Context, text string) (_ []flashcards.Card, err error) {
	defer mon.Task()(&ctx)(&err)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, flashcards.ErrValidation.New("text is required")
	}
	if limit := generator.config.MaxInputLength; limit > 0 && utf8.RuneCountInString(text) > limit {
		return nil, flashcards.ErrValidation.New("text must be at most %d characters", limit)
	}
	if generator.client == nil {
		return nil, ErrNotConfigured.New("no API key")
	}

	count := generator.config.CardCount
	if count <= 0 {
		count = 10
	}

	resp, err := generator.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: generator.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, count)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			generator.log.Error("chat completion failed",
				zap.Int("status", apiErr.HTTPStatusCode),
				zap.String("message", apiErr.Message))
		}
		return nil, Error.Wrap(err)
	}
	if len(resp.Choices) == 0 {
		return nil, Error.New("model returned no choices")
	}

	var parsed response
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, Error.New("model returned invalid JSON: %v", err)
	}

	cards := make([]flashcards.Card, 0, count)
	for _, card := range parsed.Flashcards {
		front, back := strings.TrimSpace(card.Front), strings.TrimSpace(card.Back)
		if front == "" || back == "" {
			continue
		}
		if utf8.RuneCountInString(front) > flashcards.MaxSideLength || utf8.RuneCountInString(back) > flashcards.MaxSideLength {
			continue
		}
		cards = append(cards, flashcards.Card{Front: front, Back: back, Position: len(cards)})
		if len(cards) == count {
			break
		}
	}
	if len(cards) == 0 {
		return nil, Error.New("model returned no flashcards")
	}

	generator.log.Debug("generated flashcards", zap.Int("cards", len(cards)), zap.Int("usage", resp.Usage.TotalTokens))
	return cards, nil
}
