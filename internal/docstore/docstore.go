// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package docstore manages the MongoDB connection used when the document
// store backend is selected, and creates the unique indexes the blog
// repositories rely on.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	Posts      = "posts"
	Categories = "categories"
	Users      = "users"
)

const connectTimeout = 10 * time.Second

// Connect opens a client for uri, pings it and returns the named database.
func Connect(ctx context.Context, uri, name string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	slog.Info("mongo connected", "database", name)
	return client.Database(name), nil
}

// Close disconnects the client behind db.
func Close(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}

// indexSpec describes one unique index.
type indexSpec struct {
	collection string
	field      string
}

// uniqueIndexes backs every check-then-insert in the repositories. Index
// names follow "uniq_<field>" so duplicate-key errors can be mapped back to
// the field.
var uniqueIndexes = []indexSpec{
	{Posts, "slug"},
	{Categories, "slug"},
	{Categories, "name"},
	{Users, "email"},
	{Users, "username"},
}

// IndexName returns the name of the unique index on field.
func IndexName(field string) string {
	return "uniq_" + field
}

// EnsureIndexes creates the unique and lookup indexes. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, spec := range uniqueIndexes {
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: spec.field, Value: 1}},
			Options: options.Index().SetUnique(true).SetName(IndexName(spec.field)),
		}
		if _, err := db.Collection(spec.collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index %s.%s: %w", spec.collection, IndexName(spec.field), err)
		}
	}

	lookups := mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}}
	if _, err := db.Collection(Posts).Indexes().CreateOne(ctx, lookups); err != nil {
		return fmt.Errorf("create index posts.created_at: %w", err)
	}

	slog.Info("mongo indexes ensured", "unique", len(uniqueIndexes))
	return nil
}
