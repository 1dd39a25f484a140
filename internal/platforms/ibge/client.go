// Package ibge is a client for the IBGE "localidades" API, the public
// registry of brazilian states (UFs) and municipalities.
package ibge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"ecoleta/internal/components/assert"
	"ecoleta/internal/components/telemetry"
	"ecoleta/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://servicodados.ibge.gov.br/api/v1/localidades"

const (
	report_client_states         = "client.states"
	report_client_municipalities = "client.municipalities"
	report_cache_municipalities  = "cache.municipalities"
)

var tracer = otel.Tracer("platforms/ibge")

var ErrEmptyUF = errors.New("ibge: empty uf")

// StatusError is returned when the API responds with a non-2xx status.
type StatusError struct {
	Method string
	Url    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ibge: %s %s: status %d", e.Method, e.Url, e.Status)
}

// MacroRegion is one of the five brazilian macro regions a state belongs to.
type MacroRegion struct {
	ID    int    `json:"id"`
	Sigla string `json:"sigla"`
	Nome  string `json:"nome"`
}

type State struct {
	ID     int         `json:"id"`
	Sigla  string      `json:"sigla"`
	Nome   string      `json:"nome"`
	Regiao MacroRegion `json:"regiao"`
}

type Municipality struct {
	ID   int    `json:"id"`
	Nome string `json:"nome"`
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	// defaults to 30 seconds
	Timeout time.Duration
	// maximum requests per second, 0 means unlimited
	RequestsPerSecond float64
	// how long responses are kept in memory, 0 disables caching
	CacheTTL time.Duration
	// maximum amount of cached responses, defaults to 64
	CacheSize int
	// optional, every exchange is dumped to it
	Dump restyutil.Output
}

type Client struct {
	http *resty.Client
	tel  telemetry.API

	states         *expirable.LRU[string, []State]
	municipalities *expirable.LRU[string, []Municipality]
}

const statesCacheKey = "estados"

func NewClient(opts ClientOptions, tel telemetry.API) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("ibge", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	httpClient.SetHeader("accept", "application/json")
	httpClient.SetTimeout(opts.Timeout)

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		// burst >= rps just means that no requests will be dropped
		burst = max(1, int(opts.RequestsPerSecond))
	}
	rateLimiter := rate.NewLimiter(limit, burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	restyutil.InstrumentClient(httpClient, tracer, opts.Dump)
	telemetry.InstrumentResty(httpClient, tel)

	c := &Client{
		http: httpClient,
		tel:  tel,
	}
	if opts.CacheTTL > 0 {
		c.states = expirable.NewLRU[string, []State](1, nil, opts.CacheTTL)
		c.municipalities = expirable.NewLRU[string, []Municipality](opts.CacheSize, nil, opts.CacheTTL)
	}
	return c
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	res, err := req.Get(endpoint)
	if err != nil {
		return err
	}
	if res.IsError() {
		return &StatusError{
			Method: res.Request.Method,
			Url:    res.Request.URL,
			Status: res.StatusCode(),
		}
	}
	err = json.Unmarshal(res.Body(), out)
	if err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// States lists every state ordered by name, as the API returns them.
func (c *Client) States(ctx context.Context) ([]State, error) {
	ctx, span := tracer.Start(ctx, "client:States")
	defer span.End()

	if c.states != nil {
		cached, hit := c.states.Get(statesCacheKey)
		if hit {
			span.SetStatus(codes.Ok, "CACHE HIT")
			return slices.Clone(cached), nil
		}
	}

	var states []State
	err := c.getJSON(ctx, "/estados", url.Values{"orderBy": {"nome"}}, &states)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch states")
		c.tel.ReportBroken(report_client_states, err)
		return nil, fmt.Errorf("ibge: list states: %w", err)
	}

	if c.states != nil {
		c.states.Add(statesCacheKey, slices.Clone(states))
	}
	return states, nil
}

// Municipalities lists every municipality of the state with the given sigla (ex. "SP").
func (c *Client) Municipalities(ctx context.Context, uf string) ([]Municipality, error) {
	ctx, span := tracer.Start(ctx, "client:Municipalities")
	defer span.End()

	uf = strings.ToUpper(strings.TrimSpace(uf))
	if uf == "" {
		span.SetStatus(codes.Error, ErrEmptyUF.Error())
		return nil, ErrEmptyUF
	}
	span.SetAttributes(attribute.String("custom.uf", uf))

	if c.municipalities != nil {
		cached, hit := c.municipalities.Get(uf)
		if hit {
			span.SetStatus(codes.Ok, "CACHE HIT")
			return slices.Clone(cached), nil
		}
	}

	var municipalities []Municipality
	err := c.getJSON(ctx, fmt.Sprintf("/estados/%s/municipios", url.PathEscape(uf)), nil, &municipalities)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch municipalities")
		if !errors.Is(err, context.Canceled) {
			c.tel.ReportBroken(report_client_municipalities, err, uf)
		}
		return nil, fmt.Errorf("ibge: list municipalities of %s: %w", uf, err)
	}

	if c.municipalities != nil {
		c.municipalities.Add(uf, slices.Clone(municipalities))
		c.tel.ReportCount(report_cache_municipalities, int64(c.municipalities.Len()))
	}
	return municipalities, nil
}
