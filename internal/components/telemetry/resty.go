package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ecoleta/lib/restyutil"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

type instrumentResty struct {
	tel       API
	idcounter *uint64
}

// InstrumentResty reports every request made by the client to the given API,
// failed responses (status >= 400) are reported as warnings with the full
// request/response dump attached.
func InstrumentResty(client *resty.Client, tel API) {
	var idcounter uint64
	i := instrumentResty{tel: tel, idcounter: &idcounter}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id        uint64
	startTime time.Time
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	start := time.Now()
	ctx := req.Context()

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{
		id:        id,
		startTime: start,
	})
	i.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)

	req.SetContext(ctx)
	return nil
}

// requestInfo is zero if the request never reached onBeforeRequest
// (ex. an earlier middleware like the rate limiter rejected it)
func requestInfo(ctx context.Context) reqCtx {
	info, _ := ctx.Value(reqCtxKey).(reqCtx)
	return info
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	info := requestInfo(res.Request.Context())
	duration := time.Since(info.startTime)

	i.tel.ReportDebug(
		report_resty_response,
		info.id,
		duration.String(),
		res.Status(),
	)
	if res.StatusCode() >= 400 {
		i.tel.ReportWarning(
			report_resty_response,
			fmt.Errorf("%s %s: %s", res.Request.Method, res.Request.URL, res.Status()),
			restyutil.FormatMessage(res),
		)
	}

	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	info := requestInfo(req.Context())

	var duration time.Duration
	if !info.startTime.IsZero() {
		duration = time.Since(info.startTime)
	}

	i.tel.ReportBroken(
		report_resty_response,
		err,
		req.Method,
		req.URL,
		duration,
	)
	if req.RawRequest != nil {
		i.tel.ReportDebug(report_resty_request, info.id, restyutil.FormatRequest(req))
	}
}
