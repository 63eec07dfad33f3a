// SPDX-License-Identifier: GPL-3.0-or-later

package write_mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoConn interface {
	initClient(uri, database string, timeout time.Duration) error
	insert(ctx context.Context, collection string, doc any) error
	close() error
}

type mongoClient struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

func (c *mongoClient) initClient(uri, database string, timeout time.Duration) error {
	if c.client != nil {
		return nil
	}

	c.timeout = timeout

	ctxConn, cancelConn := context.WithTimeout(context.Background(), c.timeout)
	defer cancelConn()

	client, err := mongo.Connect(ctxConn, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	ctxPing, cancelPing := context.WithTimeout(context.Background(), c.timeout)
	defer cancelPing()

	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(ctxConn)
		return err
	}

	c.client = client
	c.db = client.Database(database)

	return nil
}

func (c *mongoClient) insert(ctx context.Context, collection string, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.db.Collection(collection).InsertOne(ctx, doc)
	return err
}

func (c *mongoClient) close() error {
	if c.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.client.Disconnect(ctx); err != nil {
		return err
	}
	c.client, c.db = nil, nil
	return nil
}
