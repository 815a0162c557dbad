// Package farmatodo scrapes retail prices from the FarmaTodo web
// storefront. Product pages render client side, so the only reliable
// signal in the served HTML is the price text itself.
package farmatodo

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"time"

	"farmaprice-backend/lib/money"
	"farmaprice-backend/lib/restyutil"
	"farmaprice-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/farmatodo")

const DefaultBaseUrl = "https://www.farmatodo.com.mx"

const requestTimeout = time.Second * 20

// a variant listing renders as "$122.00–$130.00", a plain one as a
// single amount
var priceRangeRegex = regexp.MustCompile(`\$[0-9.,]+\s*–\s*\$[0-9.,]+`)
var priceSingleRegex = regexp.MustCompile(`\$([0-9.,]+)`)

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	// when nil a browser-impersonating client is constructed
	Http *resty.Client
}

type Client struct {
	http    *resty.Client
	baseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}

	client := opts.Http
	if client == nil {
		client = resty.New()
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		client.SetCookieJar(jar)
		client.SetHeader("User-Agent", "Mozilla/5.0")
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
		telemetry.InstrumentResty(client, "scrapers/farmatodo/http")
	}
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &Client{
		http:    client,
		baseUrl: baseUrl,
	}, nil
}

// Price looks up the retail price for a barcode. Variant listings
// report a price range, in which case the minimum is returned.
// (nil, nil) means the page carries no recognizable price.
func (c *Client) Price(ctx context.Context, code string) (*decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "client:Price")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.baseUrl + "/" + code)
	if err != nil {
		span.SetStatus(codes.Error, "product page fetch failed")
		return nil, err
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "product page rejected")
		return nil, fmt.Errorf("product page returned status %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse product page")
		return nil, err
	}

	return extractPrice(doc.Text()), nil
}

func extractPrice(text string) *decimal.Decimal {
	if priceRange := priceRangeRegex.FindString(text); priceRange != "" {
		minimum, _, _ := strings.Cut(priceRange, "–")
		return money.Parse(minimum)
	}

	if single := priceSingleRegex.FindString(text); single != "" {
		return money.Parse(single)
	}

	return nil
}
