package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/dokupintar/dokubot-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore implements Storage on MongoDB: one collection per partition,
// records keyed by (tenant, key) under a compound unique index so prefix
// deletes and tenant scans are ordered range operations, not collection
// scans with string filtering.
type MongoStore struct {
	db          *mongo.Database
	collections map[Partition]*mongo.Collection
}

type kvRecord struct {
	Tenant string `bson:"tenant"`
	Key    string `bson:"key"`
	Value  []byte `bson:"value"`
}

func NewMongoStore(ctx context.Context, client *mongo.Client, dbName string) (*MongoStore, error) {
	db := client.Database(dbName)
	store := &MongoStore{
		db:          db,
		collections: make(map[Partition]*mongo.Collection),
	}
	for _, p := range []Partition{PartitionChunks, PartitionVectors, PartitionMeta} {
		coll := db.Collection("index_" + string(p))
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "tenant", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return nil, &types.StorageError{Op: "init " + string(p), Err: err}
		}
		store.collections[p] = coll
	}
	return store, nil
}

func (s *MongoStore) collection(p Partition) (*mongo.Collection, error) {
	coll, ok := s.collections[p]
	if !ok {
		return nil, &types.StorageError{Op: "collection", Err: fmt.Errorf("unknown partition %q", p)}
	}
	return coll, nil
}

func (s *MongoStore) Put(ctx context.Context, tenant string, p Partition, key string, value []byte) error {
	coll, err := s.collection(p)
	if err != nil {
		return err
	}
	_, err = coll.UpdateOne(ctx,
		bson.M{"tenant": tenant, "key": key},
		bson.M{"$set": bson.M{"value": value}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return &types.StorageError{Op: "put", Err: err}
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, tenant string, p Partition, key string) ([]byte, error) {
	coll, err := s.collection(p)
	if err != nil {
		return nil, err
	}
	var rec kvRecord
	err = coll.FindOne(ctx, bson.M{"tenant": tenant, "key": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Op: "get", Err: err}
	}
	return rec.Value, nil
}

func (s *MongoStore) DeleteByPrefix(ctx context.Context, tenant string, p Partition, prefix string) error {
	coll, err := s.collection(p)
	if err != nil {
		return err
	}
	keyRange := bson.M{"$gte": prefix}
	if upper, ok := prefixSuccessor(prefix); ok {
		keyRange["$lt"] = upper
	}
	_, err = coll.DeleteMany(ctx, bson.M{"tenant": tenant, "key": keyRange})
	if err != nil {
		return &types.StorageError{Op: "delete", Err: err}
	}
	return nil
}

func (s *MongoStore) Scan(ctx context.Context, tenant string, p Partition, fn ScanFunc) error {
	coll, err := s.collection(p)
	if err != nil {
		return err
	}
	cursor, err := coll.Find(ctx,
		bson.M{"tenant": tenant},
		options.Find().SetSort(bson.D{{Key: "key", Value: 1}}),
	)
	if err != nil {
		return &types.StorageError{Op: "scan", Err: err}
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var rec kvRecord
		if err := cursor.Decode(&rec); err != nil {
			return &types.StorageError{Op: "scan decode", Err: err}
		}
		if !fn(rec.Key, rec.Value) {
			return nil
		}
	}
	if err := cursor.Err(); err != nil {
		return &types.StorageError{Op: "scan", Err: err}
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return nil
}
