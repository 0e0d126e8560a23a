// Package mongodb wraps the MongoDB driver with option based construction
// and connection verification.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	mongodbopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/mongodb"
)

// Client wraps mongo.Client together with the configured database.
//
// Example usage:
//
//	opts := mongodbopts.NewOptions()
//	opts.Host = "localhost"
//	opts.Database = "mokitul"
//
//	client, err := mongodb.New(ctx, opts)
//	if err != nil {
//	    log.Fatalf("failed to create MongoDB client: %v", err)
//	}
//	defer client.Close(ctx)
//
//	collection := client.Collection("conversations")
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	opts     *mongodbopts.Options
}

// New creates a MongoDB client, connects and verifies the connection with
// a ping. The context bounds connection establishment.
func New(ctx context.Context, opts *mongodbopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("mongodb options cannot be nil")
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid mongodb options: %v", errs)
	}

	clientOpts := mongoopts.Client().ApplyURI(opts.BuildURI())

	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.MaxIdleTime > 0 {
		clientOpts.SetMaxConnIdleTime(opts.MaxIdleTime)
	}
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}
	if opts.Direct {
		clientOpts.SetDirect(true)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Client{
		client:   client,
		database: client.Database(opts.Database),
		opts:     opts,
	}, nil
}

// Collection returns a handle to the named collection in the configured
// database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.database.Collection(name)
}

// Database returns the configured database handle.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// RawClient returns the underlying driver client.
func (c *Client) RawClient() *mongo.Client {
	return c.client
}

// Ping verifies the server is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Close disconnects from the server.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
