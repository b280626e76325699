package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/motorline/catalog-service/internal/entity"
	"github.com/motorline/catalog-service/internal/port/repository"
	"github.com/motorline/catalog-service/internal/query"
)

const carsCollectionName = "cars"

type CarMongoRepository struct {
	db *mongo.Database
}

func NewCarMongoRepository(client *mongo.Client, dbName string) *CarMongoRepository {
	return &CarMongoRepository{
		db: client.Database(dbName),
	}
}

type refDocument struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

type priceDocument struct {
	Min          float64 `bson:"min"`
	Max          float64 `bson:"max"`
	IsNegotiable bool    `bson:"is_negotiable"`
}

type carDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Name            string             `bson:"name"`
	Slug            string             `bson:"slug"`
	Brand           refDocument        `bson:"brand"`
	Model           refDocument        `bson:"model"`
	BodyType        refDocument        `bson:"body_type"`
	VendorID        string             `bson:"vendor_id"`
	Price           priceDocument      `bson:"price"`
	LaunchedAt      primitive.DateTime `bson:"launched_at"`
	Tags            []string           `bson:"tags"`
	Cities          []string           `bson:"cities"`
	SeatingCapacity int                `bson:"seating_capacity"`
	FuelType        string             `bson:"fuel_type"`
	CreatedAt       primitive.DateTime `bson:"created_at"`
	UpdatedAt       primitive.DateTime `bson:"updated_at"`
}

func toCarDocument(c *entity.Car) (*carDocument, error) {
	doc := &carDocument{
		Name:            c.Name,
		Slug:            c.Slug,
		Brand:           refDocument{ID: c.Brand.ID, Name: c.Brand.Name},
		Model:           refDocument{ID: c.Model.ID, Name: c.Model.Name},
		BodyType:        refDocument{ID: c.BodyType.ID, Name: c.BodyType.Name},
		VendorID:        c.VendorID,
		Price:           priceDocument{Min: c.Price.Min, Max: c.Price.Max, IsNegotiable: c.Price.IsNegotiable},
		LaunchedAt:      primitive.NewDateTimeFromTime(c.LaunchedAt),
		Tags:            c.Tags,
		Cities:          c.Cities,
		SeatingCapacity: c.SeatingCapacity,
		FuelType:        c.FuelType,
		CreatedAt:       primitive.NewDateTimeFromTime(c.CreatedAt),
		UpdatedAt:       primitive.NewDateTimeFromTime(c.UpdatedAt),
	}
	if c.ID != "" {
		objID, err := primitive.ObjectIDFromHex(c.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid car ID format: %w", err)
		}
		doc.ID = objID
	}
	return doc, nil
}

func toCarEntity(doc *carDocument) *entity.Car {
	return &entity.Car{
		ID:              doc.ID.Hex(),
		Name:            doc.Name,
		Slug:            doc.Slug,
		Brand:           entity.EntityRef{ID: doc.Brand.ID, Name: doc.Brand.Name},
		Model:           entity.EntityRef{ID: doc.Model.ID, Name: doc.Model.Name},
		BodyType:        entity.EntityRef{ID: doc.BodyType.ID, Name: doc.BodyType.Name},
		VendorID:        doc.VendorID,
		Price:           entity.PriceRange{Min: doc.Price.Min, Max: doc.Price.Max, IsNegotiable: doc.Price.IsNegotiable},
		LaunchedAt:      doc.LaunchedAt.Time(),
		Tags:            doc.Tags,
		Cities:          doc.Cities,
		SeatingCapacity: doc.SeatingCapacity,
		FuelType:        doc.FuelType,
		CreatedAt:       doc.CreatedAt.Time(),
		UpdatedAt:       doc.UpdatedAt.Time(),
	}
}

// fieldPaths maps the compiler's logical field names to document paths.
var fieldPaths = map[string]string{
	query.FieldName:       "name",
	query.FieldTags:       "tags",
	query.FieldBrandID:    "brand._id",
	query.FieldPriceMin:   "price.min",
	query.FieldPriceMax:   "price.max",
	query.FieldLaunchedAt: "launched_at",
	query.FieldSeats:      "seating_capacity",
	query.FieldFuelType:   "fuel_type",
}

func documentPath(field string) string {
	if path, ok := fieldPaths[field]; ok {
		return path
	}
	return field
}

// filterToBson lowers the backend-agnostic filter expression to a mongo
// query. Range operators on the same field merge into one operator document.
func filterToBson(f query.Filter) bson.M {
	out := bson.M{}
	for _, c := range f.Clauses {
		path := documentPath(c.Field)
		switch c.Op {
		case query.OpContains:
			out[path] = bson.M{"$regex": regexp.QuoteMeta(fmt.Sprintf("%v", c.Value)), "$options": "i"}
		case query.OpEquals:
			out[path] = c.Value
		case query.OpIn:
			out[path] = bson.M{"$in": c.Value}
		case query.OpGTE, query.OpLTE:
			op := "$gte"
			if c.Op == query.OpLTE {
				op = "$lte"
			}
			m, ok := out[path].(bson.M)
			if !ok {
				m = bson.M{}
				out[path] = m
			}
			m[op] = c.Value
		}
	}
	return out
}

func sortToBson(keys []query.SortKey) bson.D {
	sort := make(bson.D, 0, len(keys))
	for _, k := range keys {
		direction := 1
		if k.Descending {
			direction = -1
		}
		sort = append(sort, bson.E{Key: documentPath(k.Field), Value: direction})
	}
	return sort
}

func (r *CarMongoRepository) Create(ctx context.Context, car *entity.Car) (string, error) {
	doc, err := toCarDocument(car)
	if err != nil {
		return "", err
	}

	res, err := r.db.Collection(carsCollectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create car in mongo: %w", err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted_id to ObjectID")
	}
	return insertedID.Hex(), nil
}

func (r *CarMongoRepository) Update(ctx context.Context, car *entity.Car) error {
	doc, err := toCarDocument(car)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		return fmt.Errorf("car ID is required for update")
	}

	updateFields := bson.M{
		"$set": bson.M{
			"name":             doc.Name,
			"brand":            doc.Brand,
			"model":            doc.Model,
			"body_type":        doc.BodyType,
			"vendor_id":        doc.VendorID,
			"price":            doc.Price,
			"launched_at":      doc.LaunchedAt,
			"tags":             doc.Tags,
			"cities":           doc.Cities,
			"seating_capacity": doc.SeatingCapacity,
			"fuel_type":        doc.FuelType,
			"updated_at":       doc.UpdatedAt,
		},
	}

	res, err := r.db.Collection(carsCollectionName).UpdateOne(ctx, bson.M{"_id": doc.ID}, updateFields)
	if err != nil {
		return fmt.Errorf("failed to update car in mongo: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CarMongoRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.db.Collection(carsCollectionName).DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete car from mongo: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CarMongoRepository) FindByID(ctx context.Context, id string) (*entity.Car, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc carDocument
	err = r.db.Collection(carsCollectionName).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get car by id from mongo: %w", err)
	}
	return toCarEntity(&doc), nil
}

func (r *CarMongoRepository) FindBySlug(ctx context.Context, slug string) (*entity.Car, error) {
	var doc carDocument
	err := r.db.Collection(carsCollectionName).FindOne(ctx, bson.M{"slug": slug}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get car by slug from mongo: %w", err)
	}
	return toCarEntity(&doc), nil
}

func (r *CarMongoRepository) Find(ctx context.Context, filter query.Filter, sort []query.SortKey, skip, limit int) ([]*entity.Car, error) {
	findOptions := options.Find()
	findOptions.SetSkip(int64(skip))
	findOptions.SetLimit(int64(limit))
	if len(sort) > 0 {
		findOptions.SetSort(sortToBson(sort))
	}

	cursor, err := r.db.Collection(carsCollectionName).Find(ctx, filterToBson(filter), findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find cars in mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []carDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode car list from mongo: %w", err)
	}

	cars := make([]*entity.Car, len(docs))
	for i, doc := range docs {
		cars[i] = toCarEntity(&doc)
	}
	return cars, nil
}

func (r *CarMongoRepository) Count(ctx context.Context, filter query.Filter) (int64, error) {
	count, err := r.db.Collection(carsCollectionName).CountDocuments(ctx, filterToBson(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count cars in mongo: %w", err)
	}
	return count, nil
}

// labelPaths maps each labeled parent kind to its embedded document field.
var labelPaths = map[entity.ParentKind]string{
	entity.ParentBrand:    "brand",
	entity.ParentModel:    "model",
	entity.ParentBodyType: "body_type",
}

func (r *CarMongoRepository) UpdateParentName(ctx context.Context, kind entity.ParentKind, parentID, name string) (int64, error) {
	prefix, ok := labelPaths[kind]
	if !ok {
		return 0, fmt.Errorf("parent kind %s has no denormalized label on cars", kind)
	}

	res, err := r.db.Collection(carsCollectionName).UpdateMany(ctx,
		bson.M{prefix + "._id": parentID},
		bson.M{"$set": bson.M{prefix + ".name": name}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to fan out %s name to cars in mongo: %w", kind, err)
	}
	return res.ModifiedCount, nil
}
