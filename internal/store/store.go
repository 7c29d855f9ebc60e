// Package store defines the persistence gateway the services are written
// against. Documents are plain structs tagged for both JSON and BSON; field
// names in filters, orderings and partial updates use the JSON/BSON names.
package store

import "context"

type Op string

const (
	Eq  Op = "=="
	Ne  Op = "!="
	Gt  Op = ">"
	Gte Op = ">="
	Lt  Op = "<"
	Lte Op = "<="
	In  Op = "in"
)

type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

func Where(field string, op Op, value interface{}) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

type Order struct {
	Field string
	Desc  bool
}

func Asc(field string) Order  { return Order{Field: field} }
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// Gateway is a generic document store keyed by collection and id.
type Gateway interface {
	// Get decodes the document into out or returns domain.ErrNotFound.
	Get(ctx context.Context, collection, id string, out interface{}) error
	// Create stores doc and returns its id. A missing id is generated.
	Create(ctx context.Context, collection string, doc interface{}) (string, error)
	// Update sets the given top-level fields on an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	// Query decodes the documents matching every filter, sorted by order,
	// into out, which must point to a slice.
	Query(ctx context.Context, collection string, filters []Filter, order []Order, out interface{}) error
}

// SeatInventory changes a trip's booked seat set atomically.
type SeatInventory interface {
	// ClaimSeat adds seat to the trip if it is in range and not booked,
	// otherwise it fails with domain.ErrInvalidInput when the seat is out of
	// range and domain.ErrConflict when it is already booked.
	ClaimSeat(ctx context.Context, tripID string, seat int) error
	// ReleaseSeat removes seat from the trip; releasing a free seat is a no-op.
	ReleaseSeat(ctx context.Context, tripID string, seat int) error
}

type Store interface {
	Gateway
	SeatInventory
}
