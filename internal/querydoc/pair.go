package querydoc

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/sistrence/internal/cond"
	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/ir"
)

// Pair compiles a condition to a filter pair.
// Only field_equals is supported; a field_equals against a FieldRef fails
// with INVALID_TYPE.
func Pair(c *cond.Condition) (bson.E, error) {
	if c == nil {
		return bson.E{}, dberr.InvalidData("nil condition")
	}
	if c.Kind() != cond.FieldEquals {
		return bson.E{}, dberr.NotImplemented(backendName, fmt.Sprintf("condition kind %s", c.Kind()))
	}
	v, err := Value(c.Value())
	if err != nil {
		return bson.E{}, err
	}
	return bson.E{Key: c.Field(), Value: v}, nil
}

// Filter compiles a condition list (implicitly ANDed) to a filter document.
// An empty list matches every document.
func Filter(conds []*cond.Condition) (bson.D, error) {
	filter := bson.D{}
	for _, c := range conds {
		e, err := Pair(c)
		if err != nil {
			return nil, err
		}
		filter = append(filter, e)
	}
	return filter, nil
}

// Document converts a record to an ordered document, preparing each value.
func Document(rec ir.Record) (bson.D, error) {
	doc := make(bson.D, 0, len(rec))
	for _, p := range rec {
		v, err := Value(p.Value)
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: p.Key, Value: v})
	}
	return doc, nil
}
