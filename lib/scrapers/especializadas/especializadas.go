// Package especializadas scrapes retail prices from the Farmacias
// Especializadas web storefront. There is no usable API here: a
// barcode search leads to a product page whose markup carries the
// price in one of several historical shapes.
package especializadas

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"regexp"
	"time"

	"farmaprice-backend/lib/htmlutil"
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

var tracer = otel.Tracer("scrapers/especializadas")

const DefaultBaseUrl = "https://www.farmaciasespecializadas.com"

const requestTimeout = time.Second * 20

var priceFallbackRegex = regexp.MustCompile(`\$\s?[\d.,]+`)

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
		client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
		client.SetHeader("Accept-Language", "es-ES,es;q=0.9,en;q=0.8")
		client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		client.SetHeader("Referer", "https://www.google.com/")
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
		telemetry.InstrumentResty(client, "scrapers/especializadas/http")
	}
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &Client{
		http:    client,
		baseUrl: baseUrl,
	}, nil
}

// Price looks up the retail price for a barcode. A (nil, nil) return
// means the product simply isn't listed, which callers record as an
// absent price rather than a failure.
func (c *Client) Price(ctx context.Context, code string) (*decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "client:Price")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", code).
		Get(c.baseUrl + "/catalogsearch/result/")
	if err != nil {
		span.SetStatus(codes.Error, "search page fetch failed")
		return nil, err
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "search page rejected")
		return nil, fmt.Errorf("search returned status %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse search page")
		return nil, err
	}

	anchor, ok := htmlutil.FirstAnchor(ctx, doc.Find("a.product-item-link"))
	if !ok {
		return nil, nil
	}
	slog.DebugContext(ctx, "search hit", "barcode", code, "product", anchor.Name)

	res, err = c.http.R().
		SetContext(ctx).
		Get(anchor.Href)
	if err != nil {
		span.SetStatus(codes.Error, "product page fetch failed")
		return nil, err
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "product page rejected")
		return nil, fmt.Errorf("product page returned status %d", res.StatusCode())
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse product page")
		return nil, err
	}

	return extractPrice(doc), nil
}

// extractPrice probes the markup shapes the storefront has used over
// time, most structured first.
func extractPrice(doc *goquery.Document) *decimal.Decimal {
	if amount, ok := doc.Find("span[data-price-amount]").First().Attr("data-price-amount"); ok {
		if price := money.Parse(amount); price != nil {
			return price
		}
	}

	if content, ok := doc.Find("meta[itemprop=price]").First().Attr("content"); ok {
		if price := money.Parse(content); price != nil {
			return price
		}
	}

	if text := doc.Find("span.price").First().Text(); text != "" {
		if price := money.Parse(text); price != nil {
			return price
		}
	}

	if text := doc.Find("span.special-price").First().Text(); text != "" {
		if price := money.Parse(text); price != nil {
			return price
		}
	}

	if match := priceFallbackRegex.FindString(doc.Text()); match != "" {
		return money.Parse(match)
	}

	return nil
}
