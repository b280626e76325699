package entity

import "time"

// CarKind discriminates the two listing pools a campaign may reference. New
// and used cars live in different collections, so campaign items are split by
// kind before the record is stored.
type CarKind string

const (
	CarKindNew  CarKind = "new"
	CarKindUsed CarKind = "used"
)

type CampaignItem struct {
	CarID            string
	PromotionalPrice float64
}

type Campaign struct {
	ID           string
	Title        string
	Type         CarKind
	StartDate    time.Time
	EndDate      time.Time
	IsActive     bool
	NewCarItems  []CampaignItem
	UsedCarItems []CampaignItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
