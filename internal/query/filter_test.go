package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRef = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clauseByField(t *testing.T, f Filter, field string) Clause {
	t.Helper()
	for _, c := range f.Clauses {
		if c.Field == field {
			return c
		}
	}
	t.Fatalf("no clause for field %q", field)
	return Clause{}
}

func hasClauseForField(f Filter, field string) bool {
	for _, c := range f.Clauses {
		if c.Field == field {
			return true
		}
	}
	return false
}

func TestCompileFilter_Name(t *testing.T) {
	f, err := CompileFilter(map[string]string{"name": "corolla"}, testRef)
	require.NoError(t, err)

	c := clauseByField(t, f, FieldName)
	assert.Equal(t, OpContains, c.Op)
	assert.Equal(t, "corolla", c.Value)
}

func TestCompileFilter_Tags(t *testing.T) {
	f, err := CompileFilter(map[string]string{"tags": "suv,family"}, testRef)
	require.NoError(t, err)

	c := clauseByField(t, f, FieldTags)
	assert.Equal(t, OpIn, c.Op)
	assert.Equal(t, []string{"suv", "family"}, c.Value)
}

func TestCompileFilter_SingleTag(t *testing.T) {
	f, err := CompileFilter(map[string]string{"tags": "suv"}, testRef)
	require.NoError(t, err)

	c := clauseByField(t, f, FieldTags)
	assert.Equal(t, []string{"suv"}, c.Value)
}

func TestCompileFilter_Brand(t *testing.T) {
	f, err := CompileFilter(map[string]string{"brand": "brand-1"}, testRef)
	require.NoError(t, err)

	c := clauseByField(t, f, FieldBrandID)
	assert.Equal(t, OpEquals, c.Op)
	assert.Equal(t, "brand-1", c.Value)
}

func TestCompileFilter_LaunchStatus(t *testing.T) {
	t.Run("DefaultIsAlreadyReleased", func(t *testing.T) {
		f, err := CompileFilter(map[string]string{}, testRef)
		require.NoError(t, err)

		c := clauseByField(t, f, FieldLaunchedAt)
		assert.Equal(t, OpLTE, c.Op)
		assert.Equal(t, testRef, c.Value)
	})

	t.Run("Past", func(t *testing.T) {
		f, err := CompileFilter(map[string]string{"launchedAt": "past"}, testRef)
		require.NoError(t, err)

		c := clauseByField(t, f, FieldLaunchedAt)
		assert.Equal(t, OpLTE, c.Op)
	})

	t.Run("Future", func(t *testing.T) {
		f, err := CompileFilter(map[string]string{"launchedAt": "future"}, testRef)
		require.NoError(t, err)

		c := clauseByField(t, f, FieldLaunchedAt)
		assert.Equal(t, OpGTE, c.Op)
	})

	t.Run("BothDirectionsMeansUnconstrained", func(t *testing.T) {
		for _, raw := range []string{"past.future", "future.past"} {
			f, err := CompileFilter(map[string]string{"launchedAt": raw}, testRef)
			require.NoError(t, err)
			assert.False(t, hasClauseForField(f, FieldLaunchedAt), "raw=%s", raw)
		}
	})

	t.Run("BothDirectionsIgnoresLaunchedDate", func(t *testing.T) {
		f, err := CompileFilter(map[string]string{
			"launchedAt":   "past.future",
			"launchedDate": "2023-01-01",
		}, testRef)
		require.NoError(t, err)
		assert.False(t, hasClauseForField(f, FieldLaunchedAt))
	})

	t.Run("LaunchedDateOverridesReference", func(t *testing.T) {
		f, err := CompileFilter(map[string]string{
			"launchedAt":   "past",
			"launchedDate": "2023-01-01",
		}, testRef)
		require.NoError(t, err)

		c := clauseByField(t, f, FieldLaunchedAt)
		assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), c.Value)
	})

	t.Run("UnknownTokenIsRejected", func(t *testing.T) {
		_, err := CompileFilter(map[string]string{"launchedAt": "tomorrow"}, testRef)
		verr := &ValidationError{}
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "launchedAt", verr.Fields[0].Field)
	})

	t.Run("UnparseableLaunchedDateIsRejected", func(t *testing.T) {
		_, err := CompileFilter(map[string]string{"launchedDate": "not-a-date"}, testRef)
		verr := &ValidationError{}
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "launchedDate", verr.Fields[0].Field)
	})
}

func TestCompileFilter_Budget(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		f, err := CompileFilter(map[string]string{"budget": "100000-500000"}, testRef)
		require.NoError(t, err)

		min := clauseByField(t, f, FieldPriceMin)
		assert.Equal(t, OpGTE, min.Op)
		assert.Equal(t, 100000.0, min.Value)

		max := clauseByField(t, f, FieldPriceMax)
		assert.Equal(t, OpLTE, max.Op)
		assert.Equal(t, 500000.0, max.Value)
	})

	t.Run("MissingSeparator", func(t *testing.T) {
		_, err := CompileFilter(map[string]string{"budget": "100000"}, testRef)
		verr := &ValidationError{}
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "budget", verr.Fields[0].Field)
	})

	t.Run("NonNumericSide", func(t *testing.T) {
		_, err := CompileFilter(map[string]string{"budget": "cheap-500000"}, testRef)
		verr := &ValidationError{}
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "budget", verr.Fields[0].Field)
	})
}

func TestCompileFilter_Seats(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		f, err := CompileFilter(map[string]string{"seats": "4,5"}, testRef)
		require.NoError(t, err)

		c := clauseByField(t, f, FieldSeats)
		assert.Equal(t, OpIn, c.Op)
		assert.Equal(t, []int{4, 5}, c.Value)
	})

	t.Run("NonNumeric", func(t *testing.T) {
		_, err := CompileFilter(map[string]string{"seats": "4,many"}, testRef)
		verr := &ValidationError{}
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "seats", verr.Fields[0].Field)
	})
}

func TestCompileFilter_FuelType(t *testing.T) {
	f, err := CompileFilter(map[string]string{"fuelType": "petrol,hybrid"}, testRef)
	require.NoError(t, err)

	c := clauseByField(t, f, FieldFuelType)
	assert.Equal(t, []string{"petrol", "hybrid"}, c.Value)
}

func TestCompileFilter_NeverDropsParsedConstraints(t *testing.T) {
	params := map[string]string{
		"name":     "x",
		"tags":     "a,b",
		"brand":    "b1",
		"budget":   "1-2",
		"seats":    "4",
		"fuelType": "petrol",
	}
	f, err := CompileFilter(params, testRef)
	require.NoError(t, err)

	for _, field := range []string{
		FieldName, FieldTags, FieldBrandID,
		FieldPriceMin, FieldPriceMax, FieldSeats, FieldFuelType,
	} {
		assert.True(t, hasClauseForField(f, field), "missing clause for %s", field)
	}
}

func TestCompileFilter_Idempotent(t *testing.T) {
	params := map[string]string{
		"name":       "civic",
		"tags":       "sedan,city",
		"budget":     "5000-9000",
		"seats":      "4,5,7",
		"launchedAt": "future",
	}

	first, err := CompileFilter(params, testRef)
	require.NoError(t, err)
	second, err := CompileFilter(params, testRef)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompileFilter_CollectsAllFieldErrors(t *testing.T) {
	_, err := CompileFilter(map[string]string{
		"budget": "broken",
		"seats":  "many",
	}, testRef)

	verr := &ValidationError{}
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}
