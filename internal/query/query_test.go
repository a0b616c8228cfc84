package query

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kwypchlo/demo-product-review-system/pkg/errors"
)

// ---------------------------------------------------------------------------
// ParseOrder
// ---------------------------------------------------------------------------

func TestParseOrder_Defaults(t *testing.T) {
	spec, err := Products.ParseOrder("", "")
	require.NoError(t, err)
	assert.Equal(t, "name", spec.Field)
	assert.Equal(t, DirectionAsc, spec.Direction)

	spec, err = Reviews.ParseOrder("", "")
	require.NoError(t, err)
	assert.Equal(t, "date", spec.Field)
	assert.Equal(t, DirectionDesc, spec.Direction)
}

func TestParseOrder_AllowedFields(t *testing.T) {
	for _, field := range []string{"name", "rating", "reviewCount"} {
		spec, err := Products.ParseOrder(field, "desc")
		require.NoError(t, err)
		assert.Equal(t, field, spec.Field)
		assert.Equal(t, DirectionDesc, spec.Direction)
	}

	for _, field := range []string{"date", "rating"} {
		_, err := Reviews.ParseOrder(field, "asc")
		require.NoError(t, err)
	}
}

func TestParseOrder_RejectsUnknownField(t *testing.T) {
	_, err := Products.ParseOrder("price", "asc")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// A field valid for one entity is not valid for another.
	_, err = Reviews.ParseOrder("reviewCount", "asc")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseOrder_RejectsUnknownDirection(t *testing.T) {
	_, err := Products.ParseOrder("name", "sideways")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseOrder_RejectsInjectionAttempt(t *testing.T) {
	_, err := Products.ParseOrder("name; DROP TABLE products", "asc")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// ---------------------------------------------------------------------------
// ParseFilter
// ---------------------------------------------------------------------------

func TestParseFilter_EmptyMeansNoFilter(t *testing.T) {
	f, err := Products.ParseFilter("", "", 0)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestParseFilter_Valid(t *testing.T) {
	f, err := Reviews.ParseFilter("rating", "gte", 3)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "rating", f.Field)
	assert.Equal(t, ComparisonGTE, f.Comparison)
	assert.Equal(t, 3, f.Value)
}

func TestParseFilter_RejectsUnknownField(t *testing.T) {
	_, err := Products.ParseFilter("name", "eq", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseFilter_RejectsUnknownComparison(t *testing.T) {
	_, err := Products.ParseFilter("rating", "like", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseFilter_RejectsOutOfRangeValue(t *testing.T) {
	for _, v := range []int{0, 6, -1, 100} {
		_, err := Products.ParseFilter("rating", "eq", v)
		require.Error(t, err, "value %d", v)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
}

// ---------------------------------------------------------------------------
// OrderBy rendering
// ---------------------------------------------------------------------------

func TestOrderBy_Products(t *testing.T) {
	spec, err := Products.ParseOrder("reviewCount", "desc")
	require.NoError(t, err)

	assert.Equal(t, "ORDER BY review_count DESC", Products.OrderBy(spec, false))
	assert.Equal(t, "ORDER BY review_count DESC, id DESC", Products.OrderBy(spec, true))
}

func TestOrderBy_ReviewRatingAddsDateTieBreak(t *testing.T) {
	spec, err := Reviews.ParseOrder("rating", "asc")
	require.NoError(t, err)

	assert.Equal(t, "ORDER BY r.rating ASC, r.date DESC", Reviews.OrderBy(spec, false))
}

func TestOrderBy_PagedOrderMatchesKeysetColumns(t *testing.T) {
	// Paged queries must sort by exactly the columns the keyset predicate
	// constrains. A date tie-break between rating and id would move rows
	// across the page boundary without the cursor seeing them.
	spec, err := Reviews.ParseOrder("rating", "asc")
	require.NoError(t, err)

	assert.Equal(t, "ORDER BY r.rating ASC, r.id DESC", Reviews.OrderBy(spec, true))
}

func TestOrderBy_ReviewDateHasNoExtraTieBreak(t *testing.T) {
	spec, err := Reviews.ParseOrder("date", "desc")
	require.NoError(t, err)

	assert.Equal(t, "ORDER BY r.date DESC", Reviews.OrderBy(spec, false))
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

func TestBuilder_Empty(t *testing.T) {
	b := NewBuilder()
	assert.Equal(t, "", b.Where())
	assert.Empty(t, b.Args())
}

func TestBuilder_EqualAndFilter(t *testing.T) {
	filter, err := Reviews.ParseFilter("rating", "lte", 4)
	require.NoError(t, err)

	b := NewBuilder().
		Equal("r.product_id", "p1").
		Filter(Reviews, filter)

	assert.Equal(t, "WHERE r.product_id = $1 AND r.rating <= $2", b.Where())
	assert.Equal(t, []any{"p1", 4}, b.Args())
}

func TestBuilder_NilFilterIsNoop(t *testing.T) {
	b := NewBuilder().Filter(Products, nil)
	assert.Equal(t, "", b.Where())
}

func TestBuilder_KeysetAscending(t *testing.T) {
	spec, err := Products.ParseOrder("name", "asc")
	require.NoError(t, err)

	b := NewBuilder().Keyset(Products, spec, "Lamp", "last-id")

	assert.Equal(t, "WHERE (name > $1 OR (name = $1 AND id < $2))", b.Where())
	assert.Equal(t, []any{"Lamp", "last-id"}, b.Args())
}

func TestBuilder_KeysetDescending(t *testing.T) {
	spec, err := Reviews.ParseOrder("rating", "desc")
	require.NoError(t, err)

	b := NewBuilder().
		Equal("r.product_id", "p1").
		Keyset(Reviews, spec, 4, "last-id")

	assert.Equal(t, "WHERE r.product_id = $1 AND (r.rating < $2 OR (r.rating = $2 AND r.id < $3))", b.Where())
	assert.Equal(t, []any{"p1", 4, "last-id"}, b.Args())
}

// ---------------------------------------------------------------------------
// Keyset page walk
// ---------------------------------------------------------------------------

type walkRow struct {
	id     string
	rating int
	date   time.Time
}

func (r walkRow) value(column string) any {
	switch column {
	case "r.rating":
		return r.rating
	case "r.date":
		return r.date
	case "r.id":
		return r.id
	}
	return nil
}

func compareValues(t *testing.T, a, b any) int {
	t.Helper()
	switch av := a.(type) {
	case int:
		return av - b.(int)
	case string:
		return strings.Compare(av, b.(string))
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	t.Fatalf("unsupported key type %T", a)
	return 0
}

// sortByClause orders rows exactly as the rendered ORDER BY clause would.
func sortByClause(t *testing.T, rows []walkRow, clause string) []walkRow {
	t.Helper()
	keys := strings.Split(strings.TrimPrefix(clause, "ORDER BY "), ", ")

	sorted := append([]walkRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		for _, key := range keys {
			parts := strings.Fields(key)
			require.Len(t, parts, 2, "order key %q", key)
			cmp := compareValues(t, sorted[i].value(parts[0]), sorted[j].value(parts[0]))
			if cmp == 0 {
				continue
			}
			if parts[1] == "DESC" {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sorted
}

// Walking every page via the cursor must visit each row exactly once: the
// paged sort order and the keyset predicate have to agree on the row
// sequence, including within bands of equal ratings.
func TestKeysetWalk_RatingPagesDisjointAndExhaustive(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Ids deliberately disagree with date order inside each rating band.
	rows := []walkRow{
		{id: "05", rating: 4, date: base.Add(3 * time.Hour)},
		{id: "09", rating: 4, date: base.Add(2 * time.Hour)},
		{id: "02", rating: 4, date: base.Add(time.Hour)},
		{id: "07", rating: 5, date: base.Add(30 * time.Minute)},
		{id: "01", rating: 5, date: base.Add(4 * time.Hour)},
		{id: "04", rating: 3, date: base},
		{id: "08", rating: 4, date: base.Add(5 * time.Hour)},
	}

	for _, direction := range []string{"desc", "asc"} {
		t.Run(direction, func(t *testing.T) {
			spec, err := Reviews.ParseOrder("rating", direction)
			require.NoError(t, err)

			sorted := sortByClause(t, rows, Reviews.OrderBy(spec, true))
			keyColumn := Reviews.OrderColumn(spec.Field)

			var want []string
			for _, r := range sorted {
				want = append(want, r.id)
			}

			const limit = 2
			var walked []string
			var cursor *walkRow

			for range rows {
				var page []walkRow
				for _, r := range sorted {
					if cursor != nil {
						cmp := compareValues(t, r.value(keyColumn), cursor.value(keyColumn))
						past := cmp < 0
						if spec.Direction == DirectionAsc {
							past = cmp > 0
						}
						if !past && !(cmp == 0 && r.id < cursor.id) {
							continue
						}
					}
					page = append(page, r)
					if len(page) == limit {
						break
					}
				}

				for _, r := range page {
					walked = append(walked, r.id)
				}
				if len(page) < limit {
					break
				}
				last := page[len(page)-1]
				cursor = &last
			}

			assert.Equal(t, want, walked)
		})
	}
}
