package remotestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/savedsync"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionSavedDesigns は保存済みデザインのコレクション名。
const CollectionSavedDesigns = "saved_designs"

// savedDesignDocument はMongoDBに格納するドキュメントの形。
// userIdでユーザー単位の名前空間を表現する。
type savedDesignDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	ProductID string             `bson:"productId"`
	Product   *model.CatalogItem `bson:"product"`
	SavedAt   time.Time          `bson:"savedAt"`
}

// MongoStore はMongoDBを使用した保存済みデザインのストア。
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoStore はMongoStoreを生成する。
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		coll: db.Collection(CollectionSavedDesigns),
		now:  time.Now,
	}
}

// EnsureIndexes は(userId, productId)と(userId, savedAt)のインデックスを作成する。
// productIdは重複しうるためunique制約は付けない。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "productId", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "savedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create saved_designs indexes: %w", err)
	}
	return nil
}

// ListAll はユーザーの保存済みデザインを新しい順に返す。
// productやproductId、nameが欠けた不正なドキュメントは読み飛ばす。
func (s *MongoStore) ListAll(ctx context.Context, userID string) ([]model.SavedEntry, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "savedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list saved designs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []savedDesignDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode saved designs: %w", err)
	}

	return entriesFromDocuments(docs), nil
}

// FindByProductID はproductIdで保存済みデザインを1件検索する。見つからない場合はnilを返す。
func (s *MongoStore) FindByProductID(ctx context.Context, userID, productID string) (*model.SavedEntry, error) {
	var doc savedDesignDocument
	err := s.coll.FindOne(ctx, bson.M{"userId": userID, "productId": productID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find saved design: %w", err)
	}

	entry, ok := entryFromDocument(doc)
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Create は保存済みデザインを作成する。savedAtは書き込み時点のサーバー時刻。
func (s *MongoStore) Create(ctx context.Context, userID string, item model.CatalogItem) (*model.SavedEntry, error) {
	snapshot := item
	doc := savedDesignDocument{
		UserID:    userID,
		ProductID: item.ProductID,
		Product:   &snapshot,
		// BSONの日時はミリ秒精度
		SavedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	result, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to insert saved design: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}

	return &model.SavedEntry{
		ID:        oid.Hex(),
		ProductID: item.ProductID,
		Item:      item,
		SavedAt:   doc.SavedAt,
	}, nil
}

// DeleteByID は保存済みデザインを削除する。
// 形式が不正なIDや存在しないIDは削除済みとみなして成功を返す。
func (s *MongoStore) DeleteByID(ctx context.Context, userID, entryID string) error {
	oid, err := primitive.ObjectIDFromHex(entryID)
	if err != nil {
		return nil
	}

	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID}); err != nil {
		return fmt.Errorf("failed to delete saved design: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの保存済みデザインをすべて削除する。
func (s *MongoStore) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("failed to delete saved designs of user: %w", err)
	}
	return nil
}

func entriesFromDocuments(docs []savedDesignDocument) []model.SavedEntry {
	entries := make([]model.SavedEntry, 0, len(docs))
	for _, doc := range docs {
		if entry, ok := entryFromDocument(doc); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func entryFromDocument(doc savedDesignDocument) (model.SavedEntry, bool) {
	if doc.Product == nil || doc.Product.ProductID == "" || doc.Product.Name == "" {
		return model.SavedEntry{}, false
	}

	productID := doc.ProductID
	if productID == "" {
		productID = doc.Product.ProductID
	}

	return model.SavedEntry{
		ID:        doc.ID.Hex(),
		ProductID: productID,
		Item:      *doc.Product,
		SavedAt:   doc.SavedAt,
	}, true
}

// compile-time interface check
var _ savedsync.RemoteStore = (*MongoStore)(nil)
