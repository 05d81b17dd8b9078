package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

const collectionBugs = "bugs"

type BugRepository struct {
	col *mongo.Collection
}

func NewBugRepository(db *mongo.Database) *BugRepository {
	return &BugRepository{col: db.Collection(collectionBugs)}
}

type mongoUserRef struct {
	ID       string `bson:"id"`
	Username string `bson:"username"`
}

type mongoComment struct {
	ID        string             `bson:"id"`
	Content   string             `bson:"content"`
	Author    *mongoUserRef      `bson:"author"`
	CreatedAt primitive.DateTime `bson:"created_at"`
}

type mongoBug struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Title            string             `bson:"title"`
	Description      string             `bson:"description"`
	Status           string             `bson:"status"`
	Priority         string             `bson:"priority"`
	Reporter         *mongoUserRef      `bson:"reporter"`
	Assignee         *mongoUserRef      `bson:"assignee"`
	Tags             []string           `bson:"tags"`
	StepsToReproduce string             `bson:"steps_to_reproduce"`
	ExpectedBehavior string             `bson:"expected_behavior"`
	Environment      string             `bson:"environment"`
	Comments         []mongoComment     `bson:"comments"`
	CreatedAt        primitive.DateTime `bson:"created_at"`
	UpdatedAt        primitive.DateTime `bson:"updated_at"`
}

func refToMongo(r *domain.UserRef) *mongoUserRef {
	if r == nil {
		return nil
	}
	return &mongoUserRef{ID: r.ID, Username: r.Username}
}

func refToDomain(r *mongoUserRef) *domain.UserRef {
	if r == nil {
		return nil
	}
	return &domain.UserRef{ID: r.ID, Username: r.Username}
}

func commentToMongo(c domain.Comment) mongoComment {
	return mongoComment{
		ID:        c.ID,
		Content:   c.Content,
		Author:    refToMongo(c.Author),
		CreatedAt: primitive.NewDateTimeFromTime(c.CreatedAt),
	}
}

func toMongoBug(b *domain.Bug) mongoBug {
	comments := make([]mongoComment, 0, len(b.Comments))
	for _, c := range b.Comments {
		comments = append(comments, commentToMongo(c))
	}
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	return mongoBug{
		Title:            b.Title,
		Description:      b.Description,
		Status:           string(b.Status),
		Priority:         string(b.Priority),
		Reporter:         refToMongo(b.Reporter),
		Assignee:         refToMongo(b.Assignee),
		Tags:             tags,
		StepsToReproduce: b.StepsToReproduce,
		ExpectedBehavior: b.ExpectedBehavior,
		Environment:      b.Environment,
		Comments:         comments,
		CreatedAt:        primitive.NewDateTimeFromTime(b.CreatedAt),
		UpdatedAt:        primitive.NewDateTimeFromTime(b.UpdatedAt),
	}
}

func (mb mongoBug) toDomain() *domain.Bug {
	comments := make([]domain.Comment, 0, len(mb.Comments))
	for _, c := range mb.Comments {
		comments = append(comments, domain.Comment{
			ID:        c.ID,
			Content:   c.Content,
			Author:    refToDomain(c.Author),
			CreatedAt: c.CreatedAt.Time().UTC(),
		})
	}
	tags := mb.Tags
	if tags == nil {
		tags = []string{}
	}
	return &domain.Bug{
		ID:               mb.ID.Hex(),
		Title:            mb.Title,
		Description:      mb.Description,
		Status:           domain.BugStatus(mb.Status),
		Priority:         domain.BugPriority(mb.Priority),
		Reporter:         refToDomain(mb.Reporter),
		Assignee:         refToDomain(mb.Assignee),
		Tags:             tags,
		StepsToReproduce: mb.StepsToReproduce,
		ExpectedBehavior: mb.ExpectedBehavior,
		Environment:      mb.Environment,
		Comments:         comments,
		CreatedAt:        mb.CreatedAt.Time().UTC(),
		UpdatedAt:        mb.UpdatedAt.Time().UTC(),
	}
}

// Create inserts a new bug document and sets b.ID.
func (r *BugRepository) Create(ctx context.Context, b *domain.Bug) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, toMongoBug(b))
	if err != nil {
		return fmt.Errorf("insert bug: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		b.ID = oid.Hex()
	}
	return nil
}

func (r *BugRepository) FindByID(ctx context.Context, id string) (*domain.Bug, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBugNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mb mongoBug
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&mb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBugNotFound
		}
		return nil, fmt.Errorf("find bug: %w", err)
	}
	return mb.toDomain(), nil
}

// listQuery translates the filter into a Mongo query document.
func listQuery(f ports.ListBugsFilter) bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = string(f.Status)
	}
	if f.Priority != "" {
		q["priority"] = string(f.Priority)
	}
	switch f.Assignee {
	case "":
	case ports.AssigneeUnassigned:
		q["assignee"] = nil
	default:
		q["assignee.username"] = f.Assignee
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	return q
}

// List returns a page of bugs, newest first, and the total match count.
func (r *BugRepository) List(ctx context.Context, f ports.ListBugsFilter) ([]*domain.Bug, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := listQuery(f)
	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count bugs: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(pageSkip(f.Page, f.Limit)).
		SetLimit(int64(f.Limit))
	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list bugs: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoBug
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode bugs: %w", err)
	}
	bugs := make([]*domain.Bug, 0, len(docs))
	for _, d := range docs {
		bugs = append(bugs, d.toDomain())
	}
	return bugs, total, nil
}

// Update overwrites the mutable fields of the bug. Comments are only ever
// changed through AppendComment.
func (r *BugRepository) Update(ctx context.Context, b *domain.Bug) (*domain.Bug, error) {
	oid, err := primitive.ObjectIDFromHex(b.ID)
	if err != nil {
		return nil, domain.ErrBugNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoBug(b)
	update := bson.M{"$set": bson.M{
		"title":              doc.Title,
		"description":        doc.Description,
		"status":             doc.Status,
		"priority":           doc.Priority,
		"assignee":           doc.Assignee,
		"tags":               doc.Tags,
		"steps_to_reproduce": doc.StepsToReproduce,
		"expected_behavior":  doc.ExpectedBehavior,
		"environment":        doc.Environment,
		"updated_at":         doc.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mb mongoBug
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&mb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBugNotFound
		}
		return nil, fmt.Errorf("update bug: %w", err)
	}
	return mb.toDomain(), nil
}

func (r *BugRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrBugNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete bug: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrBugNotFound
	}
	return nil
}

// AppendComment pushes the comment and bumps updated_at in a single write.
func (r *BugRepository) AppendComment(ctx context.Context, id string, c domain.Comment) (*domain.Bug, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBugNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	mc := commentToMongo(c)
	update := bson.M{
		"$push": bson.M{"comments": mc},
		"$set":  bson.M{"updated_at": mc.CreatedAt},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mb mongoBug
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&mb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBugNotFound
		}
		return nil, fmt.Errorf("append comment: %w", err)
	}
	return mb.toDomain(), nil
}

type countBucket struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"n"`
}

type statsFacet struct {
	Total []struct {
		Count int64 `bson:"n"`
	} `bson:"total"`
	Status   []countBucket `bson:"status"`
	Priority []countBucket `bson:"priority"`
}

// Stats computes all dashboard counters in a single $facet aggregation.
func (r *BugRepository) Stats(ctx context.Context) (*domain.BugStats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	group := func(field string) bson.A {
		return bson.A{bson.M{"$group": bson.M{"_id": "$" + field, "n": bson.M{"$sum": 1}}}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"total":    bson.A{bson.M{"$count": "n"}},
			"status":   group("status"),
			"priority": group("priority"),
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	defer cur.Close(ctx)

	var facets []statsFacet
	if err := cur.All(ctx, &facets); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}

	stats := &domain.BugStats{}
	if len(facets) == 0 {
		return stats, nil
	}
	f := facets[0]
	if len(f.Total) > 0 {
		stats.TotalBugs = f.Total[0].Count
	}
	for _, b := range f.Status {
		stats.StatusCounts.AddStatus(domain.BugStatus(b.Key), b.Count)
	}
	for _, b := range f.Priority {
		stats.PriorityCounts.AddPriority(domain.BugPriority(b.Key), b.Count)
	}
	return stats, nil
}
