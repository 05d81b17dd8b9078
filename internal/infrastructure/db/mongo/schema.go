package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bugtracker/tracker-system/internal/core/domain"
)

const emailRegex = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`

// collectionSpec describes one collection: its $jsonSchema validator and indexes.
type collectionSpec struct {
	name      string
	validator bson.M
	indexes   []mongo.IndexModel
}

func enumOf[T ~string](values []T) bson.A {
	out := make(bson.A, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

func schemaSpecs() []collectionSpec {
	userRef := bson.M{
		"bsonType": bson.A{"object", "null"},
		"required": bson.A{"id", "username"},
		"properties": bson.M{
			"id":       bson.M{"bsonType": "string"},
			"username": bson.M{"bsonType": "string"},
		},
	}

	return []collectionSpec{
		{
			name: collectionUsers,
			validator: bson.M{"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": bson.A{"username", "email", "role", "auth_provider", "created_at"},
				"properties": bson.M{
					"username":      bson.M{"bsonType": "string", "minLength": domain.UsernameMinLength, "maxLength": 50},
					"email":         bson.M{"bsonType": "string", "pattern": emailRegex},
					"password_hash": bson.M{"bsonType": "string"},
					"role":          bson.M{"enum": bson.A{domain.RoleUser, domain.RoleAdmin}},
					"auth_provider": bson.M{"enum": bson.A{domain.ProviderLocal, domain.ProviderGoogle}},
					"google_id":     bson.M{"bsonType": "string"},
					"created_at":    bson.M{"bsonType": "date"},
					"updated_at":    bson.M{"bsonType": "date"},
				},
			}},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
				{Keys: bson.D{{Key: "created_at", Value: -1}}},
			},
		},
		{
			name: collectionBugs,
			validator: bson.M{"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": bson.A{"title", "description", "status", "priority", "created_at"},
				"properties": bson.M{
					"title":       bson.M{"bsonType": "string", "maxLength": domain.TitleMaxLength},
					"description": bson.M{"bsonType": "string"},
					"status":      bson.M{"enum": enumOf(domain.BugStatuses)},
					"priority":    bson.M{"enum": enumOf(domain.BugPriorities)},
					"reporter":    userRef,
					"assignee":    userRef,
					"tags":        bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
					"comments": bson.M{
						"bsonType": "array",
						"items": bson.M{
							"bsonType": "object",
							"required": bson.A{"id", "content", "created_at"},
							"properties": bson.M{
								"id":         bson.M{"bsonType": "string"},
								"content":    bson.M{"bsonType": "string"},
								"author":     userRef,
								"created_at": bson.M{"bsonType": "date"},
							},
						},
					},
					"created_at": bson.M{"bsonType": "date"},
					"updated_at": bson.M{"bsonType": "date"},
				},
			}},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "status", Value: 1}}},
				{Keys: bson.D{{Key: "priority", Value: 1}}},
				{Keys: bson.D{{Key: "reporter.id", Value: 1}}},
				{Keys: bson.D{{Key: "assignee.id", Value: 1}}},
				{Keys: bson.D{{Key: "assignee.username", Value: 1}}},
				{Keys: bson.D{{Key: "created_at", Value: -1}}},
				{Keys: bson.D{{Key: "updated_at", Value: -1}}},
			},
		},
		{
			name: collectionActivity,
			validator: bson.M{"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": bson.A{"bug_id", "action", "at"},
				"properties": bson.M{
					"bug_id": bson.M{"bsonType": "string"},
					"action": bson.M{"enum": bson.A{
						string(domain.ActionCreated), string(domain.ActionUpdated),
						string(domain.ActionCommented), string(domain.ActionDeleted),
					}},
					"at": bson.M{"bsonType": "date"},
				},
			}},
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "bug_id", Value: 1}, {Key: "at", Value: -1}}},
			},
		},
	}
}

// EnsureSchema creates the collections with their validators (or updates the
// validator of an existing collection) and creates the indexes. It is safe to
// run on every start.
func EnsureSchema(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, spec := range schemaSpecs() {
		if present[spec.name] {
			cmd := bson.D{
				{Key: "collMod", Value: spec.name},
				{Key: "validator", Value: spec.validator},
				{Key: "validationLevel", Value: "moderate"},
			}
			if err := db.RunCommand(ctx, cmd).Err(); err != nil {
				return fmt.Errorf("update validator %s: %w", spec.name, err)
			}
		} else {
			opts := options.CreateCollection().SetValidator(spec.validator).SetValidationLevel("moderate")
			if err := db.CreateCollection(ctx, spec.name, opts); err != nil {
				return fmt.Errorf("create collection %s: %w", spec.name, err)
			}
		}

		if _, err := db.Collection(spec.name).Indexes().CreateMany(ctx, spec.indexes); err != nil {
			return fmt.Errorf("create indexes %s: %w", spec.name, err)
		}
	}
	return nil
}
