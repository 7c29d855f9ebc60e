package store

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/busops/internal/domain"
)

// JSONDoc is a document as stored by the JSON-backed gateways (memory and
// CockroachDB). Values are whatever encoding/json produces: float64 numbers,
// RFC 3339 time strings, []interface{} arrays.
type JSONDoc map[string]interface{}

const (
	IDField          = "id"
	TotalSeatsField  = "totalSeats"
	BookedSeatsField = "bookedSeats"
)

func ToJSONDoc(v interface{}) (JSONDoc, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	var doc JSONDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	return doc, nil
}

// Normalize passes v through encoding/json so it compares like stored data.
func Normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode value")
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "decode value")
	}
	return out, nil
}

func (d JSONDoc) ID() string {
	id, _ := d[IDField].(string)
	return id
}

func (d JSONDoc) Decode(out interface{}) error {
	data, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode document")
}

func DecodeAll(docs []JSONDoc, out interface{}) error {
	if docs == nil {
		docs = []JSONDoc{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return errors.Wrap(err, "encode documents")
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode documents")
}

// Merge sets the given fields on the document.
func (d JSONDoc) Merge(fields map[string]interface{}) error {
	for k, v := range fields {
		nv, err := Normalize(v)
		if err != nil {
			return errors.Wrapf(err, "field %s", k)
		}
		d[k] = nv
	}
	return nil
}

func compare(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		ta, errA := time.Parse(time.RFC3339Nano, av)
		tb, errB := time.Parse(time.RFC3339Nano, bv)
		if errA == nil && errB == nil {
			return ta.Compare(tb), true
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case nil:
		if b == nil {
			return 0, true
		}
		return -1, true
	}
	return 0, false
}

// Match reports whether doc satisfies every filter. Documents missing a
// filtered field only match != filters.
func Match(doc JSONDoc, filters []Filter) (bool, error) {
	for _, f := range filters {
		want, err := Normalize(f.Value)
		if err != nil {
			return false, err
		}
		got, present := doc[f.Field]
		if !present {
			if f.Op == Ne {
				continue
			}
			return false, nil
		}
		var ok bool
		switch f.Op {
		case In:
			values, isList := want.([]interface{})
			if !isList {
				return false, errors.Newf("filter %s: in requires a list", f.Field)
			}
			for _, v := range values {
				if c, comparable := compare(got, v); comparable && c == 0 {
					ok = true
					break
				}
			}
		default:
			c, comparable := compare(got, want)
			switch f.Op {
			case Eq:
				ok = comparable && c == 0
			case Ne:
				ok = !comparable || c != 0
			case Gt:
				ok = comparable && c > 0
			case Gte:
				ok = comparable && c >= 0
			case Lt:
				ok = comparable && c < 0
			case Lte:
				ok = comparable && c <= 0
			default:
				return false, errors.Newf("filter %s: unsupported operator %q", f.Field, f.Op)
			}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func SortDocs(docs []JSONDoc, order []Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range order {
			c, _ := compare(docs[i][o.Field], docs[j][o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func (d JSONDoc) bookedSeats() []interface{} {
	seats, _ := d[BookedSeatsField].([]interface{})
	return seats
}

// ClaimSeat adds seat to the booked seats of a trip document.
func (d JSONDoc) ClaimSeat(seat int) error {
	total, _ := d[TotalSeatsField].(float64)
	if seat < 1 || float64(seat) > total {
		return domain.Invalid("seat %d outside 1..%d", seat, int(total))
	}
	seats := d.bookedSeats()
	for _, s := range seats {
		if n, _ := s.(float64); int(n) == seat {
			return domain.Conflict("seat %d already booked", seat)
		}
	}
	d[BookedSeatsField] = append(seats, float64(seat))
	return nil
}

// ReleaseSeat removes seat from the booked seats of a trip document.
func (d JSONDoc) ReleaseSeat(seat int) {
	seats := d.bookedSeats()
	kept := make([]interface{}, 0, len(seats))
	for _, s := range seats {
		if n, _ := s.(float64); int(n) != seat {
			kept = append(kept, s)
		}
	}
	d[BookedSeatsField] = kept
}
