package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/motorline/catalog-service/internal/entity"
	"github.com/motorline/catalog-service/internal/port/repository"
)

const campaignsCollectionName = "campaigns"

type CampaignMongoRepository struct {
	db *mongo.Database
}

func NewCampaignMongoRepository(client *mongo.Client, dbName string) *CampaignMongoRepository {
	return &CampaignMongoRepository{
		db: client.Database(dbName),
	}
}

type campaignItemDocument struct {
	CarID            string  `bson:"car_id"`
	PromotionalPrice float64 `bson:"promotional_price"`
}

type campaignDocument struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty"`
	Title        string                 `bson:"title"`
	Type         string                 `bson:"type"`
	StartDate    primitive.DateTime     `bson:"start_date"`
	EndDate      primitive.DateTime     `bson:"end_date"`
	IsActive     bool                   `bson:"is_active"`
	NewCarItems  []campaignItemDocument `bson:"new_car_items"`
	UsedCarItems []campaignItemDocument `bson:"used_car_items"`
	CreatedAt    primitive.DateTime     `bson:"created_at"`
	UpdatedAt    primitive.DateTime     `bson:"updated_at"`
}

func toCampaignItems(items []entity.CampaignItem) []campaignItemDocument {
	docs := make([]campaignItemDocument, len(items))
	for i, item := range items {
		docs[i] = campaignItemDocument{CarID: item.CarID, PromotionalPrice: item.PromotionalPrice}
	}
	return docs
}

func toCampaignItemEntities(docs []campaignItemDocument) []entity.CampaignItem {
	items := make([]entity.CampaignItem, len(docs))
	for i, doc := range docs {
		items[i] = entity.CampaignItem{CarID: doc.CarID, PromotionalPrice: doc.PromotionalPrice}
	}
	return items
}

func toCampaignEntity(doc *campaignDocument) *entity.Campaign {
	return &entity.Campaign{
		ID:           doc.ID.Hex(),
		Title:        doc.Title,
		Type:         entity.CarKind(doc.Type),
		StartDate:    doc.StartDate.Time(),
		EndDate:      doc.EndDate.Time(),
		IsActive:     doc.IsActive,
		NewCarItems:  toCampaignItemEntities(doc.NewCarItems),
		UsedCarItems: toCampaignItemEntities(doc.UsedCarItems),
		CreatedAt:    doc.CreatedAt.Time(),
		UpdatedAt:    doc.UpdatedAt.Time(),
	}
}

func (r *CampaignMongoRepository) Create(ctx context.Context, campaign *entity.Campaign) (string, error) {
	doc := &campaignDocument{
		Title:        campaign.Title,
		Type:         string(campaign.Type),
		StartDate:    primitive.NewDateTimeFromTime(campaign.StartDate),
		EndDate:      primitive.NewDateTimeFromTime(campaign.EndDate),
		IsActive:     campaign.IsActive,
		NewCarItems:  toCampaignItems(campaign.NewCarItems),
		UsedCarItems: toCampaignItems(campaign.UsedCarItems),
		CreatedAt:    primitive.NewDateTimeFromTime(campaign.CreatedAt),
		UpdatedAt:    primitive.NewDateTimeFromTime(campaign.UpdatedAt),
	}

	res, err := r.db.Collection(campaignsCollectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create campaign in mongo: %w", err)
	}

	insertedID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted_id to ObjectID")
	}
	return insertedID.Hex(), nil
}

func (r *CampaignMongoRepository) FindByID(ctx context.Context, id string) (*entity.Campaign, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc campaignDocument
	err = r.db.Collection(campaignsCollectionName).FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get campaign by id from mongo: %w", err)
	}
	return toCampaignEntity(&doc), nil
}

func (r *CampaignMongoRepository) FindActive(ctx context.Context, campaignType entity.CarKind, isActive *bool, now time.Time) ([]*entity.Campaign, error) {
	filter := bson.M{
		"type":     string(campaignType),
		"end_date": bson.M{"$gte": primitive.NewDateTimeFromTime(now)},
	}
	if isActive != nil {
		filter["is_active"] = *isActive
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "end_date", Value: 1}})

	cursor, err := r.db.Collection(campaignsCollectionName).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find campaigns in mongo: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []campaignDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode campaign list from mongo: %w", err)
	}

	campaigns := make([]*entity.Campaign, len(docs))
	for i, doc := range docs {
		campaigns[i] = toCampaignEntity(&doc)
	}
	return campaigns, nil
}
