package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo はMongoDBに接続し、疎通を確認してから指定データベースを返す。
// 呼び出し元はdb.Client().Disconnectで接続を閉じること。
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client.Database(database), nil
}

// EnsureMongoIndexes はusers/quotesコレクションのインデックスを作成する。
// 既に存在するインデックスは再作成されない。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "googleId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_users_google_id"),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = db.Collection("quotes").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_quotes_user_id_created_at"),
	})
	if err != nil {
		return fmt.Errorf("failed to create quotes index: %w", err)
	}

	return nil
}

// MongoPinger はMongoDBクライアントをヘルスチェック用のPingerに適合させる。
type MongoPinger struct {
	Client *mongo.Client
}

// PingContext はMongoDBへの疎通を確認する。
func (p MongoPinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx, nil)
}
