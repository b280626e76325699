package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/motorline/catalog-service/internal/query"
)

func TestFilterToBson(t *testing.T) {
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("ContainsBecomesCaseInsensitiveRegex", func(t *testing.T) {
		out := filterToBson(query.Filter{Clauses: []query.Clause{
			{Field: query.FieldName, Op: query.OpContains, Value: "corolla"},
		}})
		assert.Equal(t, bson.M{"$regex": "corolla", "$options": "i"}, out["name"])
	})

	t.Run("RegexMetacharactersQuoted", func(t *testing.T) {
		out := filterToBson(query.Filter{Clauses: []query.Clause{
			{Field: query.FieldName, Op: query.OpContains, Value: "c+ class (amg)"},
		}})
		m := out["name"].(bson.M)
		assert.Equal(t, `c\+ class \(amg\)`, m["$regex"])
	})

	t.Run("MembershipBecomesIn", func(t *testing.T) {
		out := filterToBson(query.Filter{Clauses: []query.Clause{
			{Field: query.FieldSeats, Op: query.OpIn, Value: []int{4, 5}},
		}})
		assert.Equal(t, bson.M{"$in": []int{4, 5}}, out["seating_capacity"])
	})

	t.Run("RangeOperatorsOnSameFieldMerge", func(t *testing.T) {
		out := filterToBson(query.Filter{Clauses: []query.Clause{
			{Field: query.FieldLaunchedAt, Op: query.OpGTE, Value: ref},
			{Field: query.FieldLaunchedAt, Op: query.OpLTE, Value: ref.AddDate(1, 0, 0)},
		}})
		m, ok := out["launched_at"].(bson.M)
		require.True(t, ok)
		assert.Equal(t, ref, m["$gte"])
		assert.Equal(t, ref.AddDate(1, 0, 0), m["$lte"])
	})

	t.Run("LogicalFieldsMapToDocumentPaths", func(t *testing.T) {
		out := filterToBson(query.Filter{Clauses: []query.Clause{
			{Field: query.FieldBrandID, Op: query.OpEquals, Value: "b1"},
			{Field: query.FieldPriceMin, Op: query.OpGTE, Value: 1000.0},
			{Field: query.FieldFuelType, Op: query.OpIn, Value: []string{"petrol"}},
		}})
		assert.Equal(t, "b1", out["brand._id"])
		assert.Contains(t, out, "price.min")
		assert.Contains(t, out, "fuel_type")
	})
}

func TestSortToBson(t *testing.T) {
	sort := sortToBson([]query.SortKey{
		{Field: "price.min", Descending: false},
		{Field: query.FieldLaunchedAt, Descending: true},
	})

	require.Len(t, sort, 2)
	assert.Equal(t, bson.E{Key: "price.min", Value: 1}, sort[0])
	assert.Equal(t, bson.E{Key: "launched_at", Value: -1}, sort[1])
}
