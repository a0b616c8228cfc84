package query

import (
	"fmt"
	"strings"

	apperrors "github.com/kwypchlo/demo-product-review-system/pkg/errors"
)

// Direction of an ORDER BY clause.
type Direction string

const (
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Comparison is a filter comparison operator.
type Comparison string

const (
	ComparisonGTE Comparison = "gte"
	ComparisonLTE Comparison = "lte"
	ComparisonEQ  Comparison = "eq"
)

var sqlComparisons = map[Comparison]string{
	ComparisonGTE: ">=",
	ComparisonLTE: "<=",
	ComparisonEQ:  "=",
}

// OrderSpec is a validated ordering request: which field to sort by and in
// which direction. Specs are only constructed through Entity.ParseOrder, so
// a spec in hand always refers to an allow-listed field.
type OrderSpec struct {
	Field     string
	Direction Direction
}

// FilterSpec is a validated filter clause. Only the rating field with an
// integer value between 1 and 5 is accepted.
type FilterSpec struct {
	Field      string
	Comparison Comparison
	Value      int
}

// Entity describes the queryable surface of one table: which API field names
// may be ordered or filtered on, the columns they map to, and the tie-break
// columns appended after the primary sort key. API field names never reach
// SQL directly; only the mapped column names do.
type Entity struct {
	name         string
	idColumn     string
	orderFields  map[string]string
	filterFields map[string]string
	tieBreaks    map[string]string
	defaultOrder OrderSpec
}

// Products is the queryable surface of the products table.
var Products = Entity{
	name:     "product",
	idColumn: "id",
	orderFields: map[string]string{
		"name":        "name",
		"rating":      "rating",
		"reviewCount": "review_count",
	},
	filterFields: map[string]string{
		"rating": "rating",
	},
	defaultOrder: OrderSpec{Field: "name", Direction: DirectionAsc},
}

// Reviews is the queryable surface of the reviews table. Columns carry the
// "r." alias because review queries join the authors in. Ordering by rating
// breaks ties by newest first.
var Reviews = Entity{
	name:     "review",
	idColumn: "r.id",
	orderFields: map[string]string{
		"date":   "r.date",
		"rating": "r.rating",
	},
	filterFields: map[string]string{
		"rating": "r.rating",
	},
	tieBreaks: map[string]string{
		"rating": "r.date DESC",
	},
	defaultOrder: OrderSpec{Field: "date", Direction: DirectionDesc},
}

// ParseOrder validates an ordering request against the entity's allow-list.
// Empty field and direction fall back to the entity defaults. An
// unrecognized field or direction is a validation error; nothing is passed
// through to SQL.
func (e Entity) ParseOrder(field, direction string) (OrderSpec, error) {
	spec := e.defaultOrder

	if field != "" {
		if _, ok := e.orderFields[field]; !ok {
			return OrderSpec{}, apperrors.InvalidInput(
				fmt.Sprintf("cannot order %ss by %q", e.name, field))
		}
		spec.Field = field
	}

	if direction != "" {
		d := Direction(direction)
		if d != DirectionAsc && d != DirectionDesc {
			return OrderSpec{}, apperrors.InvalidInput(
				fmt.Sprintf("order direction must be %q or %q", DirectionAsc, DirectionDesc))
		}
		spec.Direction = d
	}

	return spec, nil
}

// ParseFilter validates a filter request. An empty field means no filter.
func (e Entity) ParseFilter(field, comparison string, value int) (*FilterSpec, error) {
	if field == "" {
		return nil, nil
	}

	if _, ok := e.filterFields[field]; !ok {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("cannot filter %ss by %q", e.name, field))
	}

	cmp := Comparison(comparison)
	if _, ok := sqlComparisons[cmp]; !ok {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("filter comparison must be one of %q, %q, %q",
				ComparisonGTE, ComparisonLTE, ComparisonEQ))
	}

	if value < 1 || value > 5 {
		return nil, apperrors.InvalidInput("rating filter value must be between 1 and 5")
	}

	return &FilterSpec{Field: field, Comparison: cmp, Value: value}, nil
}

// OrderColumn returns the SQL column for an allow-listed order field.
func (e Entity) OrderColumn(field string) string {
	return e.orderFields[field]
}

// OrderBy renders the full ORDER BY clause for a spec. Unpaged listings
// append the entity tie-break for the field, if any. Paged listings (withID)
// instead append the row id descending as the only secondary key: the keyset
// predicate constrains exactly (key, id), so any sort column between them
// would let rows cross the page boundary unseen.
func (e Entity) OrderBy(spec OrderSpec, withID bool) string {
	dir := "ASC"
	if spec.Direction == DirectionDesc {
		dir = "DESC"
	}

	parts := []string{e.orderFields[spec.Field] + " " + dir}
	if withID {
		parts = append(parts, e.idColumn+" DESC")
	} else if tb, ok := e.tieBreaks[spec.Field]; ok {
		parts = append(parts, tb)
	}

	return "ORDER BY " + strings.Join(parts, ", ")
}

// Builder accumulates parameterized WHERE conditions and their arguments.
// Placeholders are numbered in the order arguments are bound.
type Builder struct {
	conditions []string
	args       []any
}

// NewBuilder creates an empty condition builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Equal appends a column = value condition.
func (b *Builder) Equal(column string, v any) *Builder {
	b.conditions = append(b.conditions, fmt.Sprintf("%s = %s", column, b.bind(v)))
	return b
}

// Filter appends the condition for a validated FilterSpec. A nil spec is a
// no-op.
func (b *Builder) Filter(e Entity, f *FilterSpec) *Builder {
	if f == nil {
		return b
	}
	column := e.filterFields[f.Field]
	op := sqlComparisons[f.Comparison]
	b.conditions = append(b.conditions, fmt.Sprintf("%s %s %s", column, op, b.bind(f.Value)))
	return b
}

// Keyset appends the page-boundary predicate for cursor pagination: rows
// strictly past the cursor position in the active sort order.
//
//	asc : key > cursor OR (key = cursor AND id < cursor id)
//	desc: key < cursor OR (key = cursor AND id < cursor id)
func (b *Builder) Keyset(e Entity, spec OrderSpec, orderKey any, id string) *Builder {
	column := e.orderFields[spec.Field]
	cmp := ">"
	if spec.Direction == DirectionDesc {
		cmp = "<"
	}

	keyArg := b.bind(orderKey)
	idArg := b.bind(id)
	b.conditions = append(b.conditions, fmt.Sprintf(
		"(%s %s %s OR (%s = %s AND %s < %s))",
		column, cmp, keyArg, column, keyArg, e.idColumn, idArg))
	return b
}

// Where renders the accumulated conditions as a WHERE clause, or the empty
// string when there are none.
func (b *Builder) Where() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conditions, " AND ")
}

// Args returns the bound arguments in placeholder order.
func (b *Builder) Args() []any {
	return b.args
}
