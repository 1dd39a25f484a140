package form

import (
	"context"
	"errors"
	"sync/atomic"

	"ecoleta/internal/components/assert"
	"ecoleta/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_controller_regions     = "controller.regions"
	report_controller_sub_regions = "controller.sub-regions"
	report_controller_catalog     = "controller.catalog"
	report_controller_submit      = "controller.submit"
)

var meter = otel.Meter("form")
var discardedCounter, _ = meter.Int64Counter("subregion_results_discarded")
var submissionCounter, _ = meter.Int64Counter("form_submissions")

type RegionSource interface {
	// Regions lists every region in display order.
	Regions(ctx context.Context) ([]Region, error)
	// SubRegions lists the sub-regions of the region with the given code.
	SubRegions(ctx context.Context, region string) ([]SubRegion, error)
}

type CatalogSource interface {
	CatalogItems(ctx context.Context) ([]CatalogItem, error)
}

type Submitter interface {
	Submit(ctx context.Context, payload Payload) (Receipt, error)
}

type Options struct {
	Regions RegionSource
	// optional, the catalog is not loaded if nil
	Catalog CatalogSource
	// optional, Submit fails with ErrNoSubmitter if nil
	Submitter Submitter
}

// Controller owns a State and serializes every mutation of it on a single
// goroutine (the loop started by Run). Requests to the sources run on their
// own goroutines and post their results back to the loop.
type Controller struct {
	regions   RegionSource
	catalog   CatalogSource
	submitter Submitter
	tel       telemetry.API

	events  chan func(*loop)
	done    chan struct{}
	running atomic.Bool
}

type loop struct {
	ctx   context.Context
	state State

	inflight int
	waiters  []chan struct{}

	cancelSubRegions context.CancelFunc
}

func NewController(opts Options, tel telemetry.API) *Controller {
	assert.NotNil(opts.Regions)
	assert.NotNil(tel)

	return &Controller{
		regions:   opts.Regions,
		catalog:   opts.Catalog,
		submitter: opts.Submitter,
		tel:       telemetry.NewScopedAPI("form", tel),
		events:    make(chan func(*loop)),
		done:      make(chan struct{}),
	}
}

// Run mounts the form, loading the regions and the catalog exactly once, and
// then applies events until ctx is done. It may only be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	l := &loop{ctx: ctx}
	c.mount(l)

	for {
		select {
		case <-ctx.Done():
			if l.cancelSubRegions != nil {
				l.cancelSubRegions()
			}
			return ctx.Err()
		case event := <-c.events:
			event(l)
			l.notify()
		}
	}
}

func (l *loop) notify() {
	if l.inflight > 0 || len(l.waiters) == 0 {
		return
	}
	for _, w := range l.waiters {
		close(w)
	}
	l.waiters = nil
}

// post delivers an event to the loop, it gives up if the loop has stopped.
func (c *Controller) post(event func(*loop)) {
	select {
	case c.events <- event:
	case <-c.done:
	}
}

func (c *Controller) send(ctx context.Context, event func(*loop)) error {
	select {
	case c.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// call runs fn on the loop and returns its result.
func call[T any](ctx context.Context, c *Controller, fn func(l *loop) T) (T, error) {
	result := make(chan T, 1)
	err := c.send(ctx, func(l *loop) {
		result <- fn(l)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	// the event runs as soon as the loop receives it, so the result is
	// already there or about to be
	return <-result, nil
}

// spawn runs work off the loop and applies the event it returns on the loop.
func (c *Controller) spawn(l *loop, work func() func(*loop)) {
	l.inflight++
	go func() {
		apply := work()
		c.post(func(l *loop) {
			l.inflight--
			apply(l)
		})
	}()
}

func (c *Controller) mount(l *loop) {
	l.state.regionsLoading()
	c.spawn(l, func() func(*loop) {
		regions, err := c.regions.Regions(l.ctx)
		return func(l *loop) {
			if err != nil {
				c.tel.ReportWarning(report_controller_regions, err)
				l.state.regionsFailed(err)
				return
			}
			l.state.regionsLoaded(regions)
		}
	})

	if c.catalog == nil {
		return
	}
	l.state.catalogLoading()
	c.spawn(l, func() func(*loop) {
		items, err := c.catalog.CatalogItems(l.ctx)
		return func(l *loop) {
			if err != nil {
				c.tel.ReportWarning(report_controller_catalog, err)
				l.state.catalogFailed(err)
				return
			}
			l.state.catalogLoaded(items)
		}
	})
}

func (c *Controller) fetchSubRegions(l *loop, region string, generation uint64) {
	if l.cancelSubRegions != nil {
		l.cancelSubRegions()
	}
	ctx, cancel := context.WithCancel(l.ctx)
	l.cancelSubRegions = cancel

	c.spawn(l, func() func(*loop) {
		subRegions, err := c.regions.SubRegions(ctx, region)
		return func(l *loop) {
			defer cancel()

			var applied bool
			if err != nil {
				applied = l.state.subRegionsFailed(generation, err)
			} else {
				applied = l.state.subRegionsLoaded(generation, subRegions)
			}
			if !applied {
				c.tel.ReportDebug("discarded superseded sub-regions", region, generation)
				discardedCounter.Add(l.ctx, 1)
				return
			}
			if err != nil {
				c.tel.ReportWarning(report_controller_sub_regions, err, region)
			}
		}
	})
}

// SelectRegion selects the region with the given code, the selected sub-region
// is cleared and the sub-regions of the new region are fetched. An empty code
// clears the region.
func (c *Controller) SelectRegion(ctx context.Context, code string) error {
	type result struct{ err error }
	res, err := call(ctx, c, func(l *loop) result {
		generation, changed, err := l.state.selectRegion(code)
		if err != nil || !changed {
			return result{err: err}
		}
		if l.state.Selection.Region == "" {
			if l.cancelSubRegions != nil {
				l.cancelSubRegions()
			}
			return result{}
		}
		c.fetchSubRegions(l, l.state.Selection.Region, generation)
		return result{}
	})
	if err != nil {
		return err
	}
	return res.err
}

// ClearRegion unsets the region and sub-region and empties the sub-region
// list, no request is made.
func (c *Controller) ClearRegion(ctx context.Context) error {
	_, err := call(ctx, c, func(l *loop) bool {
		if l.cancelSubRegions != nil {
			l.cancelSubRegions()
		}
		return l.state.clearRegion()
	})
	return err
}

func (c *Controller) SelectSubRegion(ctx context.Context, name string) error {
	res, err := call(ctx, c, func(l *loop) error {
		return l.state.selectSubRegion(name)
	})
	if err != nil {
		return err
	}
	return res
}

// ToggleItem flips the membership of the item in the selected set and reports
// whether it is selected afterwards.
func (c *Controller) ToggleItem(ctx context.Context, id int64) (bool, error) {
	type result struct {
		selected bool
		err      error
	}
	res, err := call(ctx, c, func(l *loop) result {
		selected, err := l.state.toggleItem(id)
		return result{selected: selected, err: err}
	})
	if err != nil {
		return false, err
	}
	return res.selected, res.err
}

func (c *Controller) SetContact(ctx context.Context, contact Contact) error {
	_, err := call(ctx, c, func(l *loop) struct{} {
		l.state.setContact(contact)
		return struct{}{}
	})
	return err
}

// SetPoint sets the geographic point of the form, nil unsets it.
func (c *Controller) SetPoint(ctx context.Context, point *Point) error {
	res, err := call(ctx, c, func(l *loop) error {
		return l.state.setPoint(point)
	})
	if err != nil {
		return err
	}
	return res
}

// SetAttachment sets the optional image of the form, nil removes it.
func (c *Controller) SetAttachment(ctx context.Context, attachment *Attachment) error {
	_, err := call(ctx, c, func(l *loop) struct{} {
		l.state.setAttachment(attachment)
		return struct{}{}
	})
	return err
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	return call(ctx, c, func(l *loop) State {
		return l.state.Clone()
	})
}

// Settle blocks until no request issued by the controller is in flight.
func (c *Controller) Settle(ctx context.Context) error {
	waiter, err := call(ctx, c, func(l *loop) chan struct{} {
		w := make(chan struct{})
		if l.inflight == 0 {
			close(w)
			return w
		}
		l.waiters = append(l.waiters, w)
		return w
	})
	if err != nil {
		return err
	}
	select {
	case <-waiter:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// Submit builds the payload out of the current state and hands it to the
// Submitter. The form is only marked as submitted if the Submitter accepts
// it, any failure is recorded in the state and returned. A failed submission
// can be retried, a submitted form is final and fails with ErrAlreadySubmitted.
func (c *Controller) Submit(ctx context.Context) (Receipt, error) {
	if c.submitter == nil {
		return Receipt{}, ErrNoSubmitter
	}

	type prepared struct {
		payload Payload
		err     error
	}
	p, err := call(ctx, c, func(l *loop) prepared {
		err := l.state.canSubmit()
		if err != nil {
			return prepared{err: err}
		}
		payload, err := l.state.payload()
		if err != nil {
			l.state.submitFailed(err)
			return prepared{err: err}
		}
		err = l.state.submitStarted()
		if err != nil {
			return prepared{err: err}
		}
		l.inflight++
		return prepared{payload: payload}
	})
	if err != nil {
		return Receipt{}, err
	}
	if p.err != nil {
		submissionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "not_sent")))
		return Receipt{}, p.err
	}

	receipt, err := c.submitter.Submit(ctx, p.payload)

	c.post(func(l *loop) {
		l.inflight--
		if err != nil {
			l.state.submitFailed(err)
			return
		}
		l.state.submitSucceeded(receipt)
	})

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.tel.ReportWarning(report_controller_submit, err)
		}
		submissionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		return Receipt{}, err
	}
	submissionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "submitted")))
	return receipt, nil
}
