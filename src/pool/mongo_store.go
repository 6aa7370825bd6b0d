package pool

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
)

// MongoStore keeps one document per proxy, keyed by address in _id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo dials uri and prepares the proxies collection.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	l := logger.WithComponent("Pool/Mongo")

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, unavailable("connect", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable("ping", err)
	}

	store := NewMongoStore(client, client.Database(database).Collection(collection))
	if err := store.ensureIndexes(connectCtx); err != nil {
		l.Warn().Err(err).Msg("Could not create indexes, sampling will scan the collection.")
	}

	l.Info().Str("database", database).Str("collection", collection).Msg("Mongo pool store connected.")
	return store, nil
}

func NewMongoStore(client *mongo.Client, collection *mongo.Collection) *MongoStore {
	return &MongoStore{client: client, collection: collection}
}

func (ms *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := ms.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "alive", Value: 1}},
	})
	return err
}

// Upsert replaces the whole document, so attributes missing from p are
// cleared rather than merged with the previous sighting.
func (ms *MongoStore) Upsert(ctx context.Context, p *Proxy) error {
	if p == nil || p.Address == "" {
		return ErrInvalidAddress
	}
	_, err := ms.collection.ReplaceOne(ctx,
		bson.M{"_id": p.Address},
		p,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return unavailable("upsert", err)
	}
	return nil
}

func (ms *MongoStore) SampleLive(ctx context.Context, exclude []string) (string, error) {
	if exclude == nil {
		exclude = []string{}
	}
	return ms.sample(ctx, bson.M{
		"alive": true,
		"_id":   bson.M{"$nin": exclude},
	})
}

func (ms *MongoStore) SampleAnyLive(ctx context.Context) (string, error) {
	return ms.sample(ctx, bson.M{"alive": true})
}

func (ms *MongoStore) sample(ctx context.Context, match bson.M) (string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sample", Value: bson.M{"size": 1}}},
		{{Key: "$project", Value: bson.M{"_id": 1}}},
	}

	cursor, err := ms.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return "", unavailable("sample", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return "", unavailable("sample", err)
		}
		return "", ErrNoLiveProxy
	}

	var doc struct {
		Address string `bson:"_id"`
	}
	if err := cursor.Decode(&doc); err != nil {
		return "", unavailable("sample decode", err)
	}
	return doc.Address, nil
}

func (ms *MongoStore) Get(ctx context.Context, address string) (*Proxy, error) {
	var p Proxy
	err := ms.collection.FindOne(ctx, bson.M{"_id": address}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return &p, nil
}

func (ms *MongoStore) Stats(ctx context.Context) (Stats, error) {
	live, err := ms.collection.CountDocuments(ctx, bson.M{"alive": true})
	if err != nil {
		return Stats{}, unavailable("count live", err)
	}
	total, err := ms.collection.EstimatedDocumentCount(ctx)
	if err != nil {
		return Stats{}, unavailable("count total", err)
	}
	return Stats{Live: live, Total: total}, nil
}

func (ms *MongoStore) Ping(ctx context.Context) error {
	if err := ms.client.Ping(ctx, readpref.Primary()); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (ms *MongoStore) Close(ctx context.Context) error {
	return ms.client.Disconnect(ctx)
}
