// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package sitedb

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flashgen.io/flashgen/site"
	"flashgen.io/flashgen/site/flashcards"
	"flashgen.io/flashgen/site/payments"
)

const (
	usersCollection     = "users"
	customersCollection = "customers"
)

// userDoc is the users/{uid} document.
type userDoc struct {
	Flashcards   []setDoc         `firestore:"flashcards"`
	CreatedAt    time.Time        `firestore:"createdAt"`
	CustomerID   string           `firestore:"customerId,omitempty"`
	Subscription *subscriptionDoc `firestore:"subscription,omitempty"`
}

type setDoc struct {
	Name string `firestore:"name"`
}

// cardDoc is the users/{uid}/{set}/{card} document. Cards written without a
// position have a nil Position.
type cardDoc struct {
	Front    string `firestore:"front"`
	Back     string `firestore:"back"`
	Position *int   `firestore:"position"`
}

type subscriptionDoc struct {
	CustomerID       string    `firestore:"customerId"`
	SubscriptionID   string    `firestore:"subscriptionId"`
	Status           string    `firestore:"status"`
	CurrentPeriodEnd time.Time `firestore:"currentPeriodEnd"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

// customerDoc is the customers/{customerID} document linking a provider
// customer to its user.
type customerDoc struct {
	UserID string `firestore:"userId"`
}

// firestoreDB is the Firestore implementation of site.DB.
type firestoreDB struct {
	log    *zap.Logger
	client *firestore.Client
}

// OpenFirestore connects to the Firestore database described by source,
// "project[/database][?credentials=path]". FIRESTORE_EMULATOR_HOST is
// honored by the client.
func OpenFirestore(ctx context.Context, log *zap.Logger, source string, opts Options) (site.DB, error) {
	u, err := url.Parse("firestore://" + source)
	if err != nil {
		return nil, Error.New("invalid firestore source %q: %v", source, err)
	}

	project := u.Host
	if project == "" {
		return nil, Error.New("firestore project is required")
	}

	database := strings.Trim(u.Path, "/")
	if database == "" {
		database = u.Query().Get("database")
	}
	if database == "" {
		database = firestore.DefaultDatabaseID
	}

	credentials := u.Query().Get("credentials")
	if credentials == "" {
		credentials = opts.CredentialsFile
	}

	var clientOpts []option.ClientOption
	if credentials != "" && os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentials))
	}

	var client *firestore.Client
	if database == firestore.DefaultDatabaseID {
		client, err = firestore.NewClient(ctx, project, clientOpts...)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, project, database, clientOpts...)
	}
	if err != nil {
		return nil, Error.New("failed connecting to firestore project %q: %v", project, err)
	}

	log.Debug("Connected to:", zap.String("firestore project", project), zap.String("database", database))

	return &firestoreDB{log: log, client: client}, nil
}

// MigrateToLatest is a no-op, documents are schemaless.
func (db *firestoreDB) MigrateToLatest(ctx context.Context) error { return nil }

// Ping reads a document to check that the database is reachable.
func (db *firestoreDB) Ping(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = db.client.Collection("health").Doc("ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return Error.Wrap(err)
	}
	return nil
}

// Close closes the client.
func (db *firestoreDB) Close() error {
	return Error.Wrap(db.client.Close())
}

// Flashcards returns the flashcard storage.
func (db *firestoreDB) Flashcards() flashcards.DB {
	return &firestoreFlashcards{client: db.client}
}

// Subscriptions returns the subscription storage.
func (db *firestoreDB) Subscriptions() payments.SubscriptionsDB {
	return &firestoreSubscriptions{client: db.client}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func readUser(snap *firestore.DocumentSnapshot) (userDoc, error) {
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return userDoc{}, Error.Wrap(err)
	}
	return doc, nil
}

func setsOf(doc userDoc) []flashcards.SetSummary {
	sets := make([]flashcards.SetSummary, 0, len(doc.Flashcards))
	for _, set := range doc.Flashcards {
		sets = append(sets, flashcards.SetSummary{Name: set.Name})
	}
	return sets
}
