package querydoc

import (
	"math"
	"reflect"

	"github.com/roach88/sistrence/internal/dberr"
)

// Value prepares a Go value for a document filter or payload.
//
//	bool     bool
//	integers int64 (uint64 above MaxInt64 is rejected)
//	floats   float64
//	string   string
//	nil      BSON null
//
// Field references and anything else fail with INVALID_TYPE.
func Value(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, dberr.InvalidType(v)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	}
	return nil, dberr.InvalidType(v)
}
