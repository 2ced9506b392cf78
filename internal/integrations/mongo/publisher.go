package mongo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal/facility"
)

// Publisher inserts facilities into a collection.
type Publisher struct {
	client     *mongo.Client
	database   string
	collection string
	logger     *zap.Logger
}

// ParseURL splits mongodb://host/db?collection=c into a driver connection
// string, database and collection.
func ParseURL(uri *url.URL) (connURI string, database string, collection string, err error) {
	if len(uri.Path) < 2 {
		return "", "", "", fmt.Errorf("database must be specified in URL path")
	}
	database = uri.Path[1:]

	query := uri.Query()
	collection = query.Get("collection")
	if collection == "" {
		return "", "", "", fmt.Errorf("collection query parameter is required")
	}
	query.Del("collection")

	clean := *uri
	clean.RawQuery = query.Encode()
	return clean.String(), database, collection, nil
}

func NewPublisher(ctx context.Context, uri *url.URL, logger *zap.Logger) (*Publisher, error) {
	connURI, database, collection, err := ParseURL(uri)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connURI))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("mongo publisher connected",
		zap.String("database", database),
		zap.String("collection", collection))

	return &Publisher{
		client:     client,
		database:   database,
		collection: collection,
		logger:     logger,
	}, nil
}

func (p *Publisher) Name() string {
	return "mongodb"
}

func (p *Publisher) Publish(ctx context.Context, facilities []facility.Facility) error {
	if len(facilities) == 0 {
		return nil
	}

	docs := make([]interface{}, len(facilities))
	for i, f := range facilities {
		docs[i] = f
	}

	coll := p.client.Database(p.database).Collection(p.collection)
	res, err := coll.InsertMany(ctx, docs)
	if err != nil {
		return err
	}

	p.logger.Info("published facilities",
		zap.String("collection", p.collection),
		zap.Int("count", len(res.InsertedIDs)))
	return nil
}

func (p *Publisher) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}
