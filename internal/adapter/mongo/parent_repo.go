package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/motorline/catalog-service/internal/entity"
	"github.com/motorline/catalog-service/internal/port/repository"
)

// One collection per parent kind; all four share the same document shape.
var parentCollections = map[entity.ParentKind]string{
	entity.ParentBrand:    "brands",
	entity.ParentModel:    "brand_models",
	entity.ParentVendor:   "vendors",
	entity.ParentBodyType: "body_types",
}

const carCountField = "car_collection_count"

type ParentMongoRepository struct {
	db *mongo.Database
}

func NewParentMongoRepository(client *mongo.Client, dbName string) *ParentMongoRepository {
	return &ParentMongoRepository{
		db: client.Database(dbName),
	}
}

type parentDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Name               string             `bson:"name"`
	BrandID            string             `bson:"brand_id,omitempty"`
	CarCollectionCount int64              `bson:"car_collection_count"`
	CreatedAt          primitive.DateTime `bson:"created_at"`
	UpdatedAt          primitive.DateTime `bson:"updated_at"`
}

func (r *ParentMongoRepository) collection(kind entity.ParentKind) (*mongo.Collection, error) {
	name, ok := parentCollections[kind]
	if !ok {
		return nil, fmt.Errorf("unknown parent kind: %s", kind)
	}
	return r.db.Collection(name), nil
}

func (r *ParentMongoRepository) Create(ctx context.Context, kind entity.ParentKind, parent *entity.Parent) (string, error) {
	coll, err := r.collection(kind)
	if err != nil {
		return "", err
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	doc := &parentDocument{
		Name:               parent.Name,
		BrandID:            parent.BrandID,
		CarCollectionCount: 0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create %s in mongo: %w", kind, err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted_id to ObjectID")
	}
	return insertedID.Hex(), nil
}

func (r *ParentMongoRepository) FindByID(ctx context.Context, kind entity.ParentKind, id string) (*entity.Parent, error) {
	coll, err := r.collection(kind)
	if err != nil {
		return nil, err
	}
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc parentDocument
	err = coll.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s by id from mongo: %w", kind, err)
	}

	return &entity.Parent{
		ID:                 doc.ID.Hex(),
		Kind:               kind,
		Name:               doc.Name,
		BrandID:            doc.BrandID,
		CarCollectionCount: doc.CarCollectionCount,
	}, nil
}

func (r *ParentMongoRepository) Rename(ctx context.Context, kind entity.ParentKind, id, name string) error {
	coll, err := r.collection(kind)
	if err != nil {
		return err
	}
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{
			"name":       name,
			"updated_at": primitive.NewDateTimeFromTime(time.Now()),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to rename %s in mongo: %w", kind, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementCarCount is a single $inc: the store applies the delta atomically,
// so concurrent adjustments from unrelated mutations never lose an update.
func (r *ParentMongoRepository) IncrementCarCount(ctx context.Context, kind entity.ParentKind, id string, delta int) error {
	coll, err := r.collection(kind)
	if err != nil {
		return err
	}
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$inc": bson.M{carCountField: delta},
	})
	if err != nil {
		return fmt.Errorf("failed to increment %s count in mongo: %w", kind, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete refuses while the parent's listing count is positive. The delete
// itself carries the count guard in its filter, so a concurrent increment
// between the lookup and the delete still cannot remove an in-use parent.
func (r *ParentMongoRepository) Delete(ctx context.Context, kind entity.ParentKind, id string) error {
	coll, err := r.collection(kind)
	if err != nil {
		return err
	}
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	var doc parentDocument
	err = coll.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to get %s for delete from mongo: %w", kind, err)
	}
	if doc.CarCollectionCount > 0 {
		return repository.ErrParentInUse
	}

	res, err := coll.DeleteOne(ctx, bson.M{
		"_id":         objID,
		carCountField: bson.M{"$lte": 0},
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from mongo: %w", kind, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrParentInUse
	}
	return nil
}
