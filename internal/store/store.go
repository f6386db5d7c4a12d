// Package store provides the key to JSON persistence layer used for agent
// performance records and circuit breaker state. The backing store has no
// native atomic increment, so read-modify-write goes through UpdateJSON,
// which applies optimistic concurrency control and retries on conflict.
package store

import (
	"context"
	"errors"
	"reflect"
)

// ErrConflict is returned when an optimistic update exhausted its retries.
var ErrConflict = errors.New("store: update conflict")

// Store is the narrow persistence interface the trading core depends on.
type Store interface {
	// GetJSON loads the value at key into dest. The boolean reports whether
	// the key existed; a miss leaves dest untouched and returns no error.
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)

	// PutJSON stores v at key, overwriting any previous value.
	PutJSON(ctx context.Context, key string, v interface{}) error

	// UpdateJSON performs an optimistic read-modify-write: it loads key into
	// dest (leaving dest at its zero value on a miss), invokes apply to
	// mutate dest, and writes dest back only if the stored value is unchanged
	// since the read. Conflicting writers cause a bounded number of retries;
	// every retry starts from a clean re-read, discarding the failed
	// attempt's mutation.
	UpdateJSON(ctx context.Context, key string, dest interface{}, apply func() error) error
}

// resetDest clears the value dest points at. Unmarshaling into a populated
// map merges keys instead of replacing them, so without this a retried
// update would run apply on top of the previous attempt's mutation and
// count it twice. Maps are replaced with a fresh empty map, not nil, so
// apply can insert into them after a key miss.
func resetDest(dest interface{}) {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	e := v.Elem()
	if e.Kind() == reflect.Map {
		e.Set(reflect.MakeMap(e.Type()))
		return
	}
	e.Set(reflect.Zero(e.Type()))
}
