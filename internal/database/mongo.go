package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoDatabase はURIにもMONGO_DATABASEにもデータベース名がない場合の既定名。
const DefaultMongoDatabase = "storefront"

// OpenMongo はMongoDBに接続し、疎通確認後にデータベースハンドルを返す。
// dbNameが空の場合はURIのパスから取得し、それもなければDefaultMongoDatabaseを使う。
// 呼び出し側は終了時にdb.Client().Disconnectを呼ぶこと。
func OpenMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client.Database(ResolveMongoDatabase(uri, dbName)), nil
}

// ResolveMongoDatabase は使用するデータベース名を決定する。
//
//	mongodb://localhost:27017/shop?authSource=admin -> shop
func ResolveMongoDatabase(uri, dbName string) string {
	if dbName != "" {
		return dbName
	}
	parsed, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(parsed.Path, "/"); name != "" {
			return name
		}
	}
	return DefaultMongoDatabase
}
