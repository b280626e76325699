package entity

// ParentKind identifies which aggregate collection a counter adjustment or
// lookup targets.
type ParentKind string

const (
	ParentBrand    ParentKind = "brand"
	ParentModel    ParentKind = "model"
	ParentVendor   ParentKind = "vendor"
	ParentBodyType ParentKind = "bodyType"
)

// Parent is the shape shared by the four aggregate kinds: brands, models,
// vendors and body types all carry a name and a denormalized count of the
// cars referencing them. Repositories take the kind alongside it. BrandID is
// set only on models, which belong to a brand.
type Parent struct {
	ID                 string
	Kind               ParentKind
	Name               string
	BrandID            string
	CarCollectionCount int64
}
