package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

const mongoCollection = "room_snapshots"

// MongoStore keeps one document per room; the engine state is stored as a
// JSON blob so the engine types need no bson tags.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoSnapshot struct {
	RoomID        string    `bson:"_id"`
	SchemaVersion int       `bson:"schema_version"`
	State         []byte    `bson:"state"`
	SavedAt       time.Time `bson:"saved_at"`
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
	}, nil
}

func (ms *MongoStore) Save(ctx context.Context, snap *types.RoomSnapshot) error {
	state, err := json.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.State.RoomID, err)
	}
	doc := mongoSnapshot{
		RoomID:        snap.State.RoomID,
		SchemaVersion: snap.SchemaVersion,
		State:         state,
		SavedAt:       snap.SavedAt,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := ms.coll.ReplaceOne(ctx, bson.M{"_id": doc.RoomID}, doc, opts); err != nil {
		return fmt.Errorf("upserting snapshot %s: %w", doc.RoomID, err)
	}
	return nil
}

func (ms *MongoStore) Load(ctx context.Context, roomID string) (*types.RoomSnapshot, error) {
	var doc mongoSnapshot
	err := ms.coll.FindOne(ctx, bson.M{"_id": roomID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot %s: %w", roomID, err)
	}
	return doc.toSnapshot()
}

func (ms *MongoStore) Delete(ctx context.Context, roomID string) error {
	if _, err := ms.coll.DeleteOne(ctx, bson.M{"_id": roomID}); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", roomID, err)
	}
	return nil
}

func (ms *MongoStore) LoadAll(ctx context.Context) ([]*types.RoomSnapshot, error) {
	cursor, err := ms.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snaps []*types.RoomSnapshot
	for cursor.Next(ctx) {
		var doc mongoSnapshot
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding snapshot document: %w", err)
		}
		snap, err := doc.toSnapshot()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snaps, nil
}

func (ms *MongoStore) Close(ctx context.Context) error {
	return ms.client.Disconnect(ctx)
}

func (doc *mongoSnapshot) toSnapshot() (*types.RoomSnapshot, error) {
	snap := &types.RoomSnapshot{SchemaVersion: doc.SchemaVersion, SavedAt: doc.SavedAt}
	if err := json.Unmarshal(doc.State, &snap.State); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", doc.RoomID, err)
	}
	return snap, nil
}
