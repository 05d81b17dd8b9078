package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

const collectionActivity = "bug_activity"

// ActivityRepository implements ports.ActivityRepository using MongoDB.
type ActivityRepository struct {
	col *mongo.Collection
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *mongo.Database) ports.ActivityRepository {
	return &ActivityRepository{col: db.Collection(collectionActivity)}
}

type mongoActivity struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	BugID   string             `bson:"bug_id"`
	Action  string             `bson:"action"`
	Actor   mongoUserRef       `bson:"actor"`
	Changes []string           `bson:"changes,omitempty"`
	At      primitive.DateTime `bson:"at"`
}

// Insert appends an entry to the audit collection.
func (r *ActivityRepository) Insert(ctx context.Context, a *domain.Activity) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoActivity{
		BugID:   a.BugID,
		Action:  string(a.Action),
		Actor:   mongoUserRef{ID: a.Actor.ID, Username: a.Actor.Username},
		Changes: a.Changes,
		At:      primitive.NewDateTimeFromTime(a.At),
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid.Hex()
	}
	return nil
}

// ListByBug returns the newest entries of one bug's trail.
func (r *ActivityRepository) ListByBug(ctx context.Context, bugID string, limit int) ([]*domain.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"bug_id": bugID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoActivity
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	out := make([]*domain.Activity, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.Activity{
			ID:      d.ID.Hex(),
			BugID:   d.BugID,
			Action:  domain.ActivityAction(d.Action),
			Actor:   domain.UserRef{ID: d.Actor.ID, Username: d.Actor.Username},
			Changes: d.Changes,
			At:      d.At.Time().UTC(),
		})
	}
	return out, nil
}
