// Package progress records reviews and practice against learner profiles and
// serves the per-profile views built from them.
package progress

import "errors"

// ErrUnknownEntity is returned when a review names an entity the curriculum
// does not contain.
var ErrUnknownEntity = errors.New("unknown curriculum entity")

// Gate guards store access. Check fails while the store is being reset or
// when generation belongs to a store that has since been replaced.
type Gate interface {
	Check(generation string) error
}

// OpenGate never refuses access. It is meant for tools that own the store
// directly, such as tests.
type OpenGate struct{}

func (OpenGate) Check(string) error { return nil }
