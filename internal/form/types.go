package form

import (
	"errors"
	"slices"
)

var (
	ErrNoRegion         = errors.New("form: no region selected")
	ErrUnknownRegion    = errors.New("form: unknown region")
	ErrUnknownSubRegion = errors.New("form: sub-region does not belong to the selected region")
	ErrUnknownItem      = errors.New("form: unknown catalog item")
	ErrInvalidPoint     = errors.New("form: invalid coordinates")
	ErrSubmitInFlight   = errors.New("form: a submission is already in flight")
	ErrAlreadySubmitted = errors.New("form: the form was already submitted")
	ErrNoSubmitter      = errors.New("form: no submitter configured")
	ErrStopped          = errors.New("form: controller is not running")
	ErrAlreadyRunning   = errors.New("form: controller is already running")
)

// Region is a top level division (a brazilian state), Label is what gets
// shown to the user and is currently always the same as Code.
type Region struct {
	Code  string
	Label string
}

// SubRegion is a division nested in exactly one Region (a city).
type SubRegion struct {
	Name   string
	Region string
}

type CatalogItem struct {
	ID       int64
	Title    string
	ImageUrl string
}

// Selection holds the chosen region and sub-region, an empty string means unset.
//
// invariant: SubRegion is empty whenever Region is empty, and it always names
// a sub-region of Region.
type Selection struct {
	Region    string
	SubRegion string
}

type Contact struct {
	Name     string
	Email    string
	Whatsapp string
}

type Point struct {
	Latitude  float64
	Longitude float64
}

type Attachment struct {
	Filename string
	Data     []byte
}

type LoadStatus int

const (
	LoadIdle LoadStatus = iota
	LoadLoading
	LoadLoaded
	LoadFailed
)

func (s LoadStatus) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	}
	return "unknown"
}

// Load is the state of a list fetched from a remote source.
type Load[T any] struct {
	Status LoadStatus
	Items  []T
	// set only when Status is LoadFailed
	Err error
}

func (l Load[T]) clone() Load[T] {
	l.Items = slices.Clone(l.Items)
	return l
}

type SubmitStatus int

const (
	SubmitIdle SubmitStatus = iota
	SubmitSubmitting
	SubmitSubmitted
	SubmitFailed
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitIdle:
		return "idle"
	case SubmitSubmitting:
		return "submitting"
	case SubmitSubmitted:
		return "submitted"
	case SubmitFailed:
		return "failed"
	}
	return "unknown"
}

// Receipt is what the transport hands back for an accepted submission.
type Receipt struct {
	PointID int64
}

type SubmitState struct {
	Status SubmitStatus
	// set only when Status is SubmitSubmitted
	Receipt Receipt
	// set only when Status is SubmitFailed
	Err error
}
