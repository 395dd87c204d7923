// Package mongo implements a MongoDB-backed curriculum.Archive. Query fields
// are extracted into the document; the curriculum body is stored as an opaque
// JSON payload so the archive schema never chases the plan shape.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/emberloop/ember/curriculum"
	"github.com/emberloop/ember/domain"
)

const (
	defaultCollection = "curricula"
	defaultTimeout    = 5 * time.Second
)

// Options configures the archive.
type Options struct {
	// Client is the connected MongoDB client.
	Client *mongodriver.Client
	// Database names the database holding the archive collection.
	Database string
	// Collection overrides the collection name. Defaults to "curricula".
	Collection string
	// Timeout bounds each operation. Defaults to 5s.
	Timeout time.Duration
}

// Archive implements curriculum.Archive on a MongoDB collection.
type Archive struct {
	client  *mongodriver.Client
	coll    *mongodriver.Collection
	timeout time.Duration
}

type curriculumDocument struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	GoalID      string    `bson:"goal_id,omitempty"`
	GeneratedAt time.Time `bson:"generated_at"`
	Payload     []byte    `bson:"payload"`
}

// New returns an Archive backed by the provided MongoDB client. It ensures
// the user listing index exists before returning.
func New(opts Options) (*Archive, error) {
	if opts.Client == nil {
		return nil, domain.NewError(domain.KindValidation, "mongo client is required")
	}
	if opts.Database == "" {
		return nil, domain.NewError(domain.KindValidation, "database name is required")
	}
	collection := opts.Collection
	if collection == "" {
		collection = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	a := &Archive{
		client:  opts.Client,
		coll:    opts.Client.Database(opts.Database).Collection(collection),
		timeout: timeout,
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	index := mongodriver.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "generated_at", Value: -1}},
	}
	if _, err := a.coll.Indexes().CreateOne(ctx, index); err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "ensure archive index")
	}
	return a, nil
}

// Ping reports archive reachability.
func (a *Archive) Ping(ctx context.Context) error {
	return a.client.Ping(ctx, readpref.Primary())
}

// Put stores cur keyed by its ID, overwriting any previous record.
func (a *Archive) Put(ctx context.Context, cur *curriculum.ResolvedCurriculum) error {
	if cur == nil || cur.ID == "" {
		return domain.NewError(domain.KindValidation, "curriculum id is required")
	}
	payload, err := json.Marshal(cur)
	if err != nil {
		return domain.WrapError(domain.KindValidation, err, "encode curriculum %s", cur.ID)
	}
	doc := curriculumDocument{
		ID:          cur.ID,
		UserID:      cur.UserID,
		GoalID:      cur.GoalID,
		GeneratedAt: cur.GeneratedAt.UTC(),
		Payload:     payload,
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	_, err = a.coll.ReplaceOne(ctx, bson.M{"_id": cur.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.WrapError(domain.KindBackend, err, "archive curriculum %s", cur.ID)
	}
	return nil
}

// Get returns the curriculum with the given id.
func (a *Archive) Get(ctx context.Context, id string) (*curriculum.ResolvedCurriculum, error) {
	if id == "" {
		return nil, domain.NewError(domain.KindValidation, "curriculum id is required")
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	var doc curriculumDocument
	if err := a.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, domain.NewError(domain.KindNotFound, "curriculum %s not found", id)
		}
		return nil, domain.WrapError(domain.KindBackend, err, "load curriculum %s", id)
	}
	return decode(doc)
}

// ListByUser returns the user's curricula, newest first.
func (a *Archive) ListByUser(ctx context.Context, userID string) ([]*curriculum.ResolvedCurriculum, error) {
	if userID == "" {
		return nil, domain.NewError(domain.KindValidation, "user id is required")
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	cursor, err := a.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "generated_at", Value: -1}}))
	if err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "list curricula for %s", userID)
	}
	var docs []curriculumDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.WrapError(domain.KindBackend, err, "decode curricula for %s", userID)
	}
	out := make([]*curriculum.ResolvedCurriculum, 0, len(docs))
	for _, doc := range docs {
		cur, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cur)
	}
	return out, nil
}

func decode(doc curriculumDocument) (*curriculum.ResolvedCurriculum, error) {
	var cur curriculum.ResolvedCurriculum
	if err := json.Unmarshal(doc.Payload, &cur); err != nil {
		return nil, domain.WrapError(domain.KindIntegrity, err, "curriculum %s payload corrupt", doc.ID)
	}
	return &cur, nil
}

func (a *Archive) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}
