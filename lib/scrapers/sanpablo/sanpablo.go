// Package sanpablo speaks the Farmacia San Pablo storefront API: a
// product catalog (search + detail) and an anonymous cart, which is
// the only place promotional pricing is observable. All calls are
// expected to go through a browser-backed HTTP client so the
// storefront's anti-bot session state is preserved.
package sanpablo

import (
	"context"
	"encoding/json"
	"time"

	"farmaprice-backend/lib/restyutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/go-resty/resty/v2"
)

var tracer = otel.Tracer("scrapers/sanpablo")

const (
	BaseWeb        = "https://www.farmaciasanpablo.com.mx"
	DefaultApiHost = "https://api.farmaciasanpablo.com.mx"

	siteId    = "fsp"
	apiPrefix = "/rest/v2"
	currency  = "MXN"
	language  = "es_MX"
)

const requestTimeout = time.Second * 15

// the storefront rejects requests that don't look like they came from
// its own web frontend
var commonHeaders = map[string]string{
	"Accept":           "application/json",
	"Accept-Language":  "es-MX,es;q=0.9",
	"Origin":           BaseWeb,
	"Referer":          BaseWeb + "/",
	"X-Requested-With": "XMLHttpRequest",
}

type ClientOptions struct {
	Http *resty.Client
	// overridable for tests, defaults to DefaultApiHost
	ApiHost string
}

func (o ClientOptions) apiHost() string {
	if o.ApiHost == "" {
		return DefaultApiHost
	}
	return o.ApiHost
}

// Client issues read-only catalog queries. Both methods degrade to
// empty results on any failure: a search that errors means "no
// candidates", it never aborts a batch.
type Client struct {
	http    *resty.Client
	apiHost string
}

func NewClient(opts ClientOptions) *Client {
	restyutil.InstrumentClient(opts.Http, tracer, restyInstrumentOutput)
	return &Client{
		http:    opts.Http,
		apiHost: opts.apiHost(),
	}
}

// ProductCandidate is a search hit, unverified against the requested
// barcode. Code is the join key for detail lookup and cart insertion.
type ProductCandidate struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// FreeTextQuery wraps a query in the storefront's free-text search
// qualifier. The syntax is opaque storefront DSL, all we rely on is
// that it broadens a search that returned nothing.
func FreeTextQuery(q string) string {
	return ":relevance:freeText:" + q
}

func (c *Client) Search(ctx context.Context, query string) []ProductCandidate {
	ctx, span := tracer.Start(ctx, "client:Search")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(commonHeaders).
		SetQueryParams(map[string]string{
			"query":       query,
			"curr":        currency,
			"lang":        language,
			"pageSize":    "24",
			"currentPage": "0",
			"fields":      "products(code,name)",
		}).
		Get(c.apiHost + apiPrefix + "/" + siteId + "/products/search")
	if err != nil || !res.IsSuccess() {
		span.SetStatus(codes.Error, "search request failed")
		return nil
	}

	var body struct {
		Products []ProductCandidate `json:"products"`
	}
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		span.SetStatus(codes.Error, "malformed search response")
		return nil
	}
	return body.Products
}

// Detail fetches the full catalog record for a candidate's code. A
// zero-valued ProductDetail (which matches nothing) is returned on any
// failure.
func (c *Client) Detail(ctx context.Context, code string) ProductDetail {
	ctx, span := tracer.Start(ctx, "client:Detail")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(commonHeaders).
		SetQueryParams(map[string]string{
			"fields": "FULL",
			"curr":   currency,
			"lang":   language,
		}).
		Get(c.apiHost + apiPrefix + "/" + siteId + "/products/" + code)
	if err != nil || !res.IsSuccess() {
		span.SetStatus(codes.Error, "detail request failed")
		return ProductDetail{}
	}

	var detail ProductDetail
	err = json.Unmarshal(res.Body(), &detail)
	if err != nil {
		span.SetStatus(codes.Error, "malformed detail response")
		return ProductDetail{}
	}
	return detail
}
