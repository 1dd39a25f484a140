package form

import (
	"maps"
	"slices"
)

// ItemSet is a set of catalog item ids, the zero value is an empty set.
type ItemSet struct {
	ids map[int64]struct{}
}

// NewItemSet creates a set holding the given ids.
func NewItemSet(ids ...int64) ItemSet {
	s := ItemSet{}
	for _, id := range ids {
		if !s.Has(id) {
			s.Toggle(id)
		}
	}
	return s
}

// Toggle adds the id if it is absent and removes it if it is present, it
// returns true if the id is a member after the call.
func (s *ItemSet) Toggle(id int64) bool {
	if s.ids == nil {
		s.ids = map[int64]struct{}{}
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s ItemSet) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s ItemSet) Len() int {
	return len(s.ids)
}

// IDs returns the members in ascending order.
func (s ItemSet) IDs() []int64 {
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s ItemSet) Clone() ItemSet {
	return ItemSet{ids: maps.Clone(s.ids)}
}
