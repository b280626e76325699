package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/motorline/catalog-service/internal/entity"
	"github.com/motorline/catalog-service/internal/query"
)

type MockCampaignRepository struct{ mock.Mock }

func (m *MockCampaignRepository) Create(ctx context.Context, campaign *entity.Campaign) (string, error) {
	args := m.Called(ctx, campaign)
	return args.String(0), args.Error(1)
}
func (m *MockCampaignRepository) FindByID(ctx context.Context, id string) (*entity.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campaign), args.Error(1)
}
func (m *MockCampaignRepository) FindActive(ctx context.Context, campaignType entity.CarKind, isActive *bool, now time.Time) ([]*entity.Campaign, error) {
	args := m.Called(ctx, campaignType, isActive, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Campaign), args.Error(1)
}

func TestCampaignUseCase_CreateCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("SplitsMixedItemsByDiscriminator", func(t *testing.T) {
		repo := new(MockCampaignRepository)
		uc := NewCampaignUseCase(repo, zap.NewNop())

		repo.On("Create", ctx, mock.AnythingOfType("*entity.Campaign")).Return("camp-1", nil).Once()

		campaign, err := uc.CreateCampaign(ctx, CreateCampaignInput{
			Title: "Eid Offer",
			Type:  entity.CarKindNew,
			Items: []CampaignItemInput{
				{CarID: "c1", Type: entity.CarKindNew, PromotionalPrice: 100},
				{CarID: "c2", Type: entity.CarKindUsed, PromotionalPrice: 200},
				{CarID: "c3", Type: entity.CarKindNew, PromotionalPrice: 300},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, []entity.CampaignItem{
			{CarID: "c1", PromotionalPrice: 100},
			{CarID: "c3", PromotionalPrice: 300},
		}, campaign.NewCarItems)
		assert.Equal(t, []entity.CampaignItem{
			{CarID: "c2", PromotionalPrice: 200},
		}, campaign.UsedCarItems)
		repo.AssertExpectations(t)
	})

	t.Run("UnknownDiscriminatorRejected", func(t *testing.T) {
		repo := new(MockCampaignRepository)
		uc := NewCampaignUseCase(repo, zap.NewNop())

		_, err := uc.CreateCampaign(ctx, CreateCampaignInput{
			Items: []CampaignItemInput{{CarID: "c1", Type: "vintage"}},
		})
		verr := &query.ValidationError{}
		require.ErrorAs(t, err, &verr)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCampaignUseCase_ListActive_StatusFilter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	boolPtr := func(b bool) *bool { return &b }

	cases := []struct {
		name       string
		status     string
		wantActive *bool
	}{
		{"AbsentStatusMeansNoRestriction", "", nil},
		{"ActiveRestrictsToActive", "active", boolPtr(true)},
		{"HiddenRestrictsToInactive", "hidden", boolPtr(false)},
		{"UnrecognizedFallsBackToActive", "garbage", boolPtr(true)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockCampaignRepository)
			uc := NewCampaignUseCase(repo, zap.NewNop())
			uc.now = func() time.Time { return now }

			repo.On("FindActive", ctx, entity.CarKindNew, tc.wantActive, now).
				Return([]*entity.Campaign{}, nil).Once()

			_, err := uc.ListActive(ctx, entity.CarKindNew, tc.status)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}
