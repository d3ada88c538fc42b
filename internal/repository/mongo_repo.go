package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/printpress/internal/model"
)

// MongoDBのコレクション名。
const (
	MongoUsersCollection  = "users"
	MongoQuotesCollection = "quotes"
)

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
// googleIdの一意インデックスはdatabase.EnsureMongoIndexesで作成する。
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(MongoUsersCollection)}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByGoogleID はGoogleのsubject idでユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"googleId": googleID})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// Create はユーザーを作成する。googleIdの重複はErrDuplicateUserに変換する。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// MongoQuoteRepo はMongoDBを使用した見積依頼リポジトリ。
type MongoQuoteRepo struct {
	coll *mongo.Collection
}

// NewMongoQuoteRepo はMongoQuoteRepoを生成する。
func NewMongoQuoteRepo(db *mongo.Database) *MongoQuoteRepo {
	return &MongoQuoteRepo{coll: db.Collection(MongoQuotesCollection)}
}

// Create は見積依頼を作成する。
func (r *MongoQuoteRepo) Create(ctx context.Context, quote *model.Quote) error {
	if _, err := r.coll.InsertOne(ctx, quote); err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの見積依頼を作成日時の降順で返す。
func (r *MongoQuoteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Quote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer cur.Close(ctx)

	quotes := []*model.Quote{}
	if err := cur.All(ctx, &quotes); err != nil {
		return nil, fmt.Errorf("failed to decode quotes: %w", err)
	}
	return quotes, nil
}

// FindByIDAndUserID はIDと所有者が一致する見積依頼を返す。見つからない場合はnilを返す。
func (r *MongoQuoteRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Quote, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	var quote model.Quote
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&quote)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find quote: %w", err)
	}
	return &quote, nil
}

// compile-time interface checks
var (
	_ UserRepository  = (*MongoUserRepo)(nil)
	_ QuoteRepository = (*MongoQuoteRepo)(nil)
)
