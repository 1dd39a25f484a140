package telemetry

import (
	"fmt"
)

// API is how components report what happens to them, tests swap in a
// Recorder to assert on the reports.
//
// ids name the component and operation that failed, like
// "client.municipalities" or "controller.sub-regions". They are lowercase, words
// in an operation are joined with dashes and the package is left out since
// every component reports through a ScopedAPI named after it.
type API interface {
	// ReportBroken reports a failure that needs fixing, params carry the error
	// and whatever identifies the input.
	ReportBroken(id string, params ...any)
	// ReportWarning reports a failure that is expected to happen now and then,
	// like a rejected submission or a canceled request.
	ReportWarning(id string, params ...any)
	ReportDebug(msg string, params ...any)
	// ReportCount reports a gauge like reading, such as the size of a cache.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with "<namespace>: ".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
