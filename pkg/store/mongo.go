package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/plan"
)

// MongoStore persists runs and layouts in MongoDB. It is the backend for
// multi-instance API deployments where several workers share one queue.
type MongoStore struct {
	client  *mongo.Client
	runs    *mongo.Collection
	layouts *mongo.Collection
}

// mongoLayout wraps a plan document's JSON for the layouts collection.
// The payload stays opaque bytes, not BSON, so documents round-trip
// byte-exact regardless of driver version.
type mongoLayout struct {
	OrderID   string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

const mongoConnectTimeout = 10 * time.Second

// NewMongoStore connects to MongoDB and pings the primary before returning,
// so a bad URI fails at startup rather than on first write.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo URI must not be empty")
	}
	if database == "" {
		database = "gangrun"
	}

	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	return &MongoStore{
		client:  client,
		runs:    db.Collection("runs"),
		layouts: db.Collection("layouts"),
	}, nil
}

// CreateRuns replaces the order's run set with the given records.
func (s *MongoStore) CreateRuns(ctx context.Context, orderID string, runs []RunRecord) error {
	if _, err := s.runs.DeleteMany(ctx, bson.M{"order_id": orderID}); err != nil {
		return fmt.Errorf("clear runs for %s: %w", orderID, err)
	}
	if len(runs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, len(runs))
	for i, r := range runs {
		r.OrderID = orderID
		r.CreatedAt = now
		r.UpdatedAt = now
		docs[i] = r
	}
	if _, err := s.runs.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert runs for %s: %w", orderID, err)
	}
	return nil
}

// GetRun returns the run with the given id.
func (s *MongoStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var r RunRecord
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeRunNotFound, "run %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &r, nil
}

// ListRuns returns the order's runs sorted by run number.
func (s *MongoStore) ListRuns(ctx context.Context, orderID string) ([]RunRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "run_number", Value: 1}})
	cur, err := s.runs.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", orderID, err)
	}
	var runs []RunRecord
	if err := cur.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("decode runs for %s: %w", orderID, err)
	}
	return runs, nil
}

func (s *MongoStore) updateRun(ctx context.Context, id string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.runs.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodeRunNotFound, "run %q not found", id)
	}
	return nil
}

// UpdateRunStatus moves a run to the given lifecycle state.
func (s *MongoStore) UpdateRunStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "unknown run status %q", status)
	}
	return s.updateRun(ctx, id, bson.M{"status": status})
}

// AnnotateRunError records a failure note on the run; empty clears it.
func (s *MongoStore) AnnotateRunError(ctx context.Context, id string, msg string) error {
	return s.updateRun(ctx, id, bson.M{"error": msg})
}

// AttachArtifacts replaces the run's artifact URL list.
func (s *MongoStore) AttachArtifacts(ctx context.Context, id string, urls []string) error {
	return s.updateRun(ctx, id, bson.M{"artifacts": urls})
}

// SaveLayout stores the order's chosen plan document.
func (s *MongoStore) SaveLayout(ctx context.Context, orderID string, doc *plan.PlanDocument) error {
	data, err := encodeLayout(doc)
	if err != nil {
		return err
	}
	record := mongoLayout{OrderID: orderID, Payload: data, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.layouts.ReplaceOne(ctx, bson.M{"_id": orderID}, record, opts); err != nil {
		return fmt.Errorf("save layout for %s: %w", orderID, err)
	}
	return nil
}

// LoadLayout returns the order's saved plan document.
func (s *MongoStore) LoadLayout(ctx context.Context, orderID string) (*plan.PlanDocument, error) {
	var record mongoLayout
	err := s.layouts.FindOne(ctx, bson.M{"_id": orderID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeLayoutNotFound, "no saved layout for order %q", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("load layout for %s: %w", orderID, err)
	}
	return decodeLayout(record.Payload)
}

// ClearLayout removes the order's saved plan document.
func (s *MongoStore) ClearLayout(ctx context.Context, orderID string) error {
	if _, err := s.layouts.DeleteOne(ctx, bson.M{"_id": orderID}); err != nil {
		return fmt.Errorf("clear layout for %s: %w", orderID, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
