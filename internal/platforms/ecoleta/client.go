// Package ecoleta is a client for the Ecoleta backend, the service that stores
// collection points and the catalog of collectable items.
package ecoleta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecoleta/internal/components/assert"
	"ecoleta/internal/components/telemetry"
	"ecoleta/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_client_items        = "client.items"
	report_client_create_point = "client.create-point"
	report_client_points       = "client.points"
	report_client_point        = "client.point"
)

var tracer = otel.Tracer("platforms/ecoleta")

type Item struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ImageUrl string `json:"image_url"`
}

type Point struct {
	ID        int64   `json:"id"`
	Image     string  `json:"image"`
	ImageUrl  string  `json:"image_url"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Whatsapp  string  `json:"whatsapp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Uf        string  `json:"uf"`
}

type PointItem struct {
	Title string `json:"title"`
}

type PointDetail struct {
	Point Point       `json:"point"`
	Items []PointItem `json:"items"`
}

type Image struct {
	Filename string
	Data     []byte
}

type CreatePointRequest struct {
	Name      string
	Email     string
	Whatsapp  string
	Uf        string
	City      string
	Latitude  float64
	Longitude float64
	Items     []int64
	// optional
	Image *Image
}

func joinIds(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func formatCoordinate(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// MultipartFields returns the text parts of the multipart body sent by CreatePoint.
func (r CreatePointRequest) MultipartFields() map[string]string {
	return map[string]string{
		"name":      r.Name,
		"email":     r.Email,
		"whatsapp":  r.Whatsapp,
		"uf":        r.Uf,
		"city":      r.City,
		"latitude":  formatCoordinate(r.Latitude),
		"longitude": formatCoordinate(r.Longitude),
		"items":     joinIds(r.Items),
	}
}

type PointFilter struct {
	Uf    string
	City  string
	Items []int64
}

type ClientOptions struct {
	BaseUrl string
	// defaults to 30 seconds
	Timeout time.Duration
	// optional, every exchange is dumped to it
	Dump restyutil.Output
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) *Client {
	assert.NotEmptyStr(opts.BaseUrl)
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("ecoleta", tel)

	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	httpClient.SetHeader("accept", "application/json")
	httpClient.SetTimeout(opts.Timeout)

	restyutil.InstrumentClient(httpClient, tracer, opts.Dump)
	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		http: httpClient,
		tel:  tel,
	}
}

func (c *Client) fail(span trace.Span, id string, err error, params ...any) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.tel.ReportBroken(id, append([]any{err}, params...)...)
}

func decode(res *resty.Response, out any) error {
	if res.IsError() {
		return responseError(res)
	}
	err := json.Unmarshal(res.Body(), out)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Items lists the catalog of collectable items.
func (c *Client) Items(ctx context.Context) ([]Item, error) {
	ctx, span := tracer.Start(ctx, "client:Items")
	defer span.End()

	res, err := c.http.R().SetContext(ctx).Get("/items")
	if err != nil {
		c.fail(span, report_client_items, err)
		return nil, fmt.Errorf("ecoleta: list items: %w", err)
	}
	var items []Item
	err = decode(res, &items)
	if err != nil {
		c.fail(span, report_client_items, err)
		return nil, fmt.Errorf("ecoleta: list items: %w", err)
	}
	return items, nil
}

// CreatePoint registers a collection point, the request is sent as a
// multipart form with an optional "image" file part.
func (c *Client) CreatePoint(ctx context.Context, req CreatePointRequest) (Point, error) {
	ctx, span := tracer.Start(ctx, "client:CreatePoint")
	defer span.End()
	span.SetAttributes(
		attribute.String("custom.uf", req.Uf),
		attribute.String("custom.city", req.City),
		attribute.Int("custom.items", len(req.Items)),
	)

	r := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(req.MultipartFields())
	if req.Image != nil {
		r.SetFileReader("image", req.Image.Filename, bytes.NewReader(req.Image.Data))
	}

	res, err := r.Post("/points")
	if err != nil {
		c.fail(span, report_client_create_point, err)
		return Point{}, fmt.Errorf("ecoleta: create point: %w", err)
	}

	var point Point
	err = decode(res, &point)
	if err != nil {
		// a rejected body is the user's problem, not a broken component
		if res.StatusCode() < 500 && res.IsError() {
			span.SetStatus(codes.Error, err.Error())
			c.tel.ReportWarning(report_client_create_point, err)
		} else {
			c.fail(span, report_client_create_point, err)
		}
		return Point{}, fmt.Errorf("ecoleta: create point: %w", err)
	}
	return point, nil
}

// Points lists the points matching the filter, empty filter fields are omitted.
func (c *Client) Points(ctx context.Context, filter PointFilter) ([]Point, error) {
	ctx, span := tracer.Start(ctx, "client:Points")
	defer span.End()

	r := c.http.R().SetContext(ctx)
	if filter.Uf != "" {
		r.SetQueryParam("uf", filter.Uf)
	}
	if filter.City != "" {
		r.SetQueryParam("city", filter.City)
	}
	if len(filter.Items) > 0 {
		r.SetQueryParam("items", joinIds(filter.Items))
	}

	res, err := r.Get("/points")
	if err != nil {
		c.fail(span, report_client_points, err)
		return nil, fmt.Errorf("ecoleta: list points: %w", err)
	}
	var points []Point
	err = decode(res, &points)
	if err != nil {
		c.fail(span, report_client_points, err)
		return nil, fmt.Errorf("ecoleta: list points: %w", err)
	}
	return points, nil
}

// Point returns a single point with the titles of the items it collects.
func (c *Client) Point(ctx context.Context, id int64) (PointDetail, error) {
	ctx, span := tracer.Start(ctx, "client:Point")
	defer span.End()
	span.SetAttributes(attribute.Int64("custom.point_id", id))

	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Get("/points/{id}")
	if err != nil {
		c.fail(span, report_client_point, err)
		return PointDetail{}, fmt.Errorf("ecoleta: get point %d: %w", id, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		span.SetStatus(codes.Error, ErrPointNotFound.Error())
		return PointDetail{}, ErrPointNotFound
	}

	var detail PointDetail
	err = decode(res, &detail)
	if err != nil {
		c.fail(span, report_client_point, err)
		return PointDetail{}, fmt.Errorf("ecoleta: get point %d: %w", id, err)
	}
	return detail, nil
}
