package db

import (
	"context"
	"errors"
	"fmt"

	"broadcast-search/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotConnected = errors.New("store not connected")

// Client stores episodes in a MongoDB collection. Documents use the bson tags
// of domain.Episode and are keyed by the episode ID.
type Client struct {
	mongoClient *mongo.Client
	collection  *mongo.Collection
	initErr     error
}

// NewClient prepares a client for the given collection. Nothing is sent to
// the server until Connect.
func NewClient(connectionString, databaseName, collectionName string) *Client {
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(connectionString))
	if err != nil {
		return &Client{initErr: err}
	}
	return &Client{
		mongoClient: mongoClient,
		collection:  mongoClient.Database(databaseName).Collection(collectionName),
	}
}

// Connect pings the server and makes sure the episode indexes exist.
func (c *Client) Connect(ctx context.Context) error {
	if c.initErr != nil {
		return fmt.Errorf("mongo client: %w", c.initErr)
	}
	if c.mongoClient == nil {
		return ErrNotConnected
	}
	if err := c.mongoClient.Ping(ctx, nil); err != nil {
		return err
	}

	_, err := c.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "url", Value: 1}}},
		{Keys: bson.D{{Key: "air_date", Value: -1}, {Key: "start_time", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create episode indexes: %w", err)
	}
	return nil
}

// Close disconnects from the server.
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// SaveEpisode upserts an episode by ID.
func (c *Client) SaveEpisode(ctx context.Context, episode *domain.Episode) error {
	if c.collection == nil {
		return ErrNotConnected
	}
	_, err := c.collection.ReplaceOne(ctx,
		bson.M{"id": episode.ID},
		episode,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert episode %s: %w", episode.ID, err)
	}
	return nil
}

// CountEpisodes returns the number of stored episodes.
func (c *Client) CountEpisodes(ctx context.Context) (int64, error) {
	if c.collection == nil {
		return 0, ErrNotConnected
	}
	return c.collection.CountDocuments(ctx, bson.M{})
}

// LoadEpisodes returns every stored episode, newest air date first. Documents
// that no longer decode into an episode are skipped.
func (c *Client) LoadEpisodes(ctx context.Context) ([]domain.Episode, error) {
	if c.collection == nil {
		return nil, ErrNotConnected
	}

	sortByAir := bson.D{{Key: "air_date", Value: -1}, {Key: "start_time", Value: 1}}
	cursor, err := c.collection.Find(ctx, bson.M{}, options.Find().SetSort(sortByAir))
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer cursor.Close(ctx)

	var episodes []domain.Episode
	for cursor.Next(ctx) {
		var ep domain.Episode
		if cursor.Decode(&ep) != nil {
			continue
		}
		episodes = append(episodes, ep)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("read episodes: %w", err)
	}
	return episodes, nil
}

// ExistingURLs returns the set of page URLs already stored.
func (c *Client) ExistingURLs(ctx context.Context) (map[string]bool, error) {
	if c.collection == nil {
		return nil, ErrNotConnected
	}

	values, err := c.collection.Distinct(ctx, "url", bson.M{"url": bson.M{"$nin": bson.A{"", nil}}})
	if err != nil {
		return nil, fmt.Errorf("query episode URLs: %w", err)
	}

	urls := make(map[string]bool, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			urls[s] = true
		}
	}
	return urls, nil
}
