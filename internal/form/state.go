package form

import (
	"slices"
	"strings"
)

// State is the whole view state of a collection point form. It is only ever
// mutated by the transitions below, and only on the Controller's loop.
type State struct {
	Regions    Load[Region]
	SubRegions Load[SubRegion]
	Catalog    Load[CatalogItem]

	Selection  Selection
	Items      ItemSet
	Contact    Contact
	Point      *Point
	Attachment *Attachment

	Submit SubmitState

	// generation of the sub-region list, bumped on every region change so
	// that results of superseded requests can be told apart.
	generation uint64
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	s.Regions = s.Regions.clone()
	s.SubRegions = s.SubRegions.clone()
	s.Catalog = s.Catalog.clone()
	s.Items = s.Items.Clone()
	if s.Point != nil {
		point := *s.Point
		s.Point = &point
	}
	if s.Attachment != nil {
		attachment := Attachment{
			Filename: s.Attachment.Filename,
			Data:     slices.Clone(s.Attachment.Data),
		}
		s.Attachment = &attachment
	}
	return s
}

// SubRegionNames returns the names of the currently listed sub-regions.
func (s State) SubRegionNames() []string {
	names := make([]string, len(s.SubRegions.Items))
	for i, sub := range s.SubRegions.Items {
		names[i] = sub.Name
	}
	return names
}

func normalizeRegion(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// -- reference data

func (s *State) regionsLoading() {
	s.Regions = Load[Region]{Status: LoadLoading}
}

func (s *State) regionsLoaded(regions []Region) {
	s.Regions = Load[Region]{Status: LoadLoaded, Items: regions}
}

func (s *State) regionsFailed(err error) {
	s.Regions = Load[Region]{Status: LoadFailed, Err: err}
}

func (s *State) catalogLoading() {
	s.Catalog = Load[CatalogItem]{Status: LoadLoading}
}

func (s *State) catalogLoaded(items []CatalogItem) {
	s.Catalog = Load[CatalogItem]{Status: LoadLoaded, Items: items}
}

func (s *State) catalogFailed(err error) {
	s.Catalog = Load[CatalogItem]{Status: LoadFailed, Err: err}
}

// -- cascade

func (s *State) hasRegion(code string) bool {
	return slices.ContainsFunc(s.Regions.Items, func(r Region) bool {
		return r.Code == code
	})
}

// selectRegion switches the selected region, the dependent selection is always
// cleared. Selecting the current region again only issues a new request when
// its sub-regions failed to load. It returns the generation a sub-region
// request for the new region must be tagged with and whether anything changed
// at all.
func (s *State) selectRegion(code string) (uint64, bool, error) {
	code = normalizeRegion(code)
	if code == "" {
		return s.generation, s.clearRegion(), nil
	}
	if code == s.Selection.Region && s.SubRegions.Status != LoadFailed {
		return s.generation, false, nil
	}
	if s.Regions.Status == LoadLoaded && !s.hasRegion(code) {
		return s.generation, false, ErrUnknownRegion
	}

	s.generation++
	s.Selection = Selection{Region: code}
	s.SubRegions = Load[SubRegion]{Status: LoadLoading}
	return s.generation, true, nil
}

// clearRegion unsets region and sub-region and empties the sub-region list
// without any request, it returns false if there was nothing to clear.
func (s *State) clearRegion() bool {
	if s.Selection.Region == "" && s.SubRegions.Status == LoadIdle {
		return false
	}
	s.generation++
	s.Selection = Selection{}
	s.SubRegions = Load[SubRegion]{Status: LoadIdle}
	return true
}

// subRegionsLoaded applies the result of the request tagged with generation,
// results of superseded requests are discarded and false is returned.
func (s *State) subRegionsLoaded(generation uint64, subRegions []SubRegion) bool {
	if generation != s.generation {
		return false
	}
	s.SubRegions = Load[SubRegion]{Status: LoadLoaded, Items: subRegions}
	return true
}

func (s *State) subRegionsFailed(generation uint64, err error) bool {
	if generation != s.generation {
		return false
	}
	s.SubRegions = Load[SubRegion]{Status: LoadFailed, Err: err}
	return true
}

func (s *State) selectSubRegion(name string) error {
	if s.Selection.Region == "" {
		return ErrNoRegion
	}
	name = strings.TrimSpace(name)
	if name == "" {
		s.Selection.SubRegion = ""
		return nil
	}
	found := slices.ContainsFunc(s.SubRegions.Items, func(sub SubRegion) bool {
		return sub.Name == name && sub.Region == s.Selection.Region
	})
	if !found {
		return ErrUnknownSubRegion
	}
	s.Selection.SubRegion = name
	return nil
}

// -- multi-select

// toggleItem flips the membership of id, ids are only checked against the
// catalog once it has loaded.
func (s *State) toggleItem(id int64) (bool, error) {
	if s.Catalog.Status == LoadLoaded {
		known := slices.ContainsFunc(s.Catalog.Items, func(item CatalogItem) bool {
			return item.ID == id
		})
		if !known {
			return s.Items.Has(id), ErrUnknownItem
		}
	}
	return s.Items.Toggle(id), nil
}

// -- free fields

func (s *State) setContact(contact Contact) {
	s.Contact = contact
}

func (s *State) setPoint(point *Point) error {
	if point == nil {
		s.Point = nil
		return nil
	}
	if !validPoint(*point) {
		return ErrInvalidPoint
	}
	p := *point
	s.Point = &p
	return nil
}

func (s *State) setAttachment(attachment *Attachment) {
	if attachment == nil {
		s.Attachment = nil
		return
	}
	a := Attachment{Filename: attachment.Filename, Data: slices.Clone(attachment.Data)}
	s.Attachment = &a
}

// -- submission

// canSubmit reports whether a new submission may start, a submitted form is
// final.
func (s *State) canSubmit() error {
	switch s.Submit.Status {
	case SubmitSubmitting:
		return ErrSubmitInFlight
	case SubmitSubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

func (s *State) submitStarted() error {
	err := s.canSubmit()
	if err != nil {
		return err
	}
	s.Submit = SubmitState{Status: SubmitSubmitting}
	return nil
}

func (s *State) submitSucceeded(receipt Receipt) {
	s.Submit = SubmitState{Status: SubmitSubmitted, Receipt: receipt}
}

func (s *State) submitFailed(err error) {
	s.Submit = SubmitState{Status: SubmitFailed, Err: err}
}
