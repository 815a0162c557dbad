package sanpablo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"farmaprice-backend/lib/money"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/codes"
)

// SettleDelay is how long the storefront needs to recompute cart
// totals after a line is inserted. Reading back sooner returns stale
// or empty entries. This is a deliberate fixed wait, not a poll.
const SettleDelay = time.Millisecond * 300

const removeTimeout = time.Second * 10

var ErrCartOccupied = errors.New("cart already holds an entry, remove it before adding another")
var ErrCartNotCreated = errors.New("cart has not been created")

// Cart drives one anonymous storefront cart. It holds at most one
// line at a time: prices are read per product, so an entry is always
// removed before the next one goes in.
type Cart struct {
	http     *resty.Client
	apiHost  string
	id       string
	occupied bool
}

func NewCart(opts ClientOptions) *Cart {
	return &Cart{
		http:    opts.Http,
		apiHost: opts.apiHost(),
	}
}

func (c *Cart) cartsUrl() string {
	return c.apiHost + apiPrefix + "/" + siteId + "/users/anonymous/carts"
}

// Create allocates the anonymous cart used for the rest of the batch.
// Failure here is fatal for the whole run, without a cart no pricing
// is possible.
func (c *Cart) Create(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "cart:Create")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(commonHeaders).
		SetQueryParams(map[string]string{"lang": language, "curr": currency}).
		Post(c.cartsUrl())
	if err != nil {
		span.SetStatus(codes.Error, "cart creation request failed")
		return fmt.Errorf("failed to create cart: %w", err)
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "cart creation rejected")
		return fmt.Errorf("failed to create cart: status %d", res.StatusCode())
	}

	// the identifier has shown up under both keys depending on
	// storefront version
	var body struct {
		Guid string `json:"guid"`
		Code string `json:"code"`
	}
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		span.SetStatus(codes.Error, "malformed cart creation response")
		return fmt.Errorf("failed to create cart: %w", err)
	}

	id := body.Guid
	if id == "" {
		id = body.Code
	}
	if id == "" {
		span.SetStatus(codes.Error, "cart creation response missing identifier")
		return errors.New("failed to create cart: response carries no cart identifier")
	}

	c.id = id
	c.occupied = false
	return nil
}

// AddEntry inserts a line item. The caller must not read prices after
// a failed add, the cart contents are undefined then.
func (c *Cart) AddEntry(ctx context.Context, code string, qty int) error {
	ctx, span := tracer.Start(ctx, "cart:AddEntry")
	defer span.End()

	if c.id == "" {
		return ErrCartNotCreated
	}
	if c.occupied {
		span.SetStatus(codes.Error, ErrCartOccupied.Error())
		return ErrCartOccupied
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(commonHeaders).
		SetHeader("Content-Type", "application/json").
		SetQueryParams(map[string]string{"lang": language, "curr": currency}).
		SetBody(map[string]any{
			"product":  map[string]string{"code": code},
			"quantity": qty,
		}).
		Post(c.cartsUrl() + "/" + c.id + "/entries")
	if err != nil {
		span.SetStatus(codes.Error, "add entry request failed")
		return fmt.Errorf("failed to add cart entry: %w", err)
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "add entry rejected")
		return fmt.Errorf("failed to add cart entry: status %d", res.StatusCode())
	}

	c.occupied = true
	return nil
}

// PriceQuote is what one cart line reveals about a product's pricing.
type PriceQuote struct {
	Base  *decimal.Decimal
	Total *decimal.Decimal
	// the cart line's product name, more authoritative than the
	// catalog search name
	Name string
}

// Promo returns the charged total when it is strictly below the base
// price, otherwise nil: equal prices mean no promotion is running.
func (q PriceQuote) Promo() *decimal.Decimal {
	if q.Total != nil && q.Base != nil && q.Total.LessThan(*q.Base) {
		return q.Total
	}
	return nil
}

// Prices reads back the cart line at entryIdx. Returns an error when
// the cart has no such entry or the response is malformed.
func (c *Cart) Prices(ctx context.Context, entryIdx int) (PriceQuote, error) {
	ctx, span := tracer.Start(ctx, "cart:Prices")
	defer span.End()

	if c.id == "" {
		return PriceQuote{}, ErrCartNotCreated
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	fields := "entries(entryNumber,product(code,name)," +
		"basePrice(value,formattedValue),totalPrice(value,formattedValue))"

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(commonHeaders).
		SetQueryParams(map[string]string{
			"fields": fields,
			"lang":   language,
			"curr":   currency,
		}).
		Get(c.cartsUrl() + "/" + c.id)
	if err != nil {
		span.SetStatus(codes.Error, "cart read request failed")
		return PriceQuote{}, fmt.Errorf("failed to read cart: %w", err)
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "cart read rejected")
		return PriceQuote{}, fmt.Errorf("failed to read cart: status %d", res.StatusCode())
	}

	var body struct {
		Entries []struct {
			EntryNumber int `json:"entryNumber"`
			Product     struct {
				Code string `json:"code"`
				Name string `json:"name"`
			} `json:"product"`
			BasePrice struct {
				Value any `json:"value"`
			} `json:"basePrice"`
			TotalPrice struct {
				Value any `json:"value"`
			} `json:"totalPrice"`
		} `json:"entries"`
	}
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		span.SetStatus(codes.Error, "malformed cart response")
		return PriceQuote{}, fmt.Errorf("failed to read cart: %w", err)
	}
	if entryIdx >= len(body.Entries) {
		span.SetStatus(codes.Error, "cart has no such entry")
		return PriceQuote{}, fmt.Errorf("cart has no entry at index %d", entryIdx)
	}

	entry := body.Entries[entryIdx]
	return PriceQuote{
		Base:  money.Parse(entry.BasePrice.Value),
		Total: money.Parse(entry.TotalPrice.Value),
		Name:  entry.Product.Name,
	}, nil
}

// RemoveEntry deletes the line at entryIdx, best effort. A failed
// removal must never abort a batch, the next AddEntry simply operates
// on whatever state remains. Safe to call on an already-empty cart.
func (c *Cart) RemoveEntry(ctx context.Context, entryIdx int) {
	ctx, span := tracer.Start(ctx, "cart:RemoveEntry")
	defer span.End()

	// clear regardless of the request outcome below so a stuck line
	// doesn't wedge every following identifier behind ErrCartOccupied
	c.occupied = false

	if c.id == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, removeTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(commonHeaders).
		Delete(fmt.Sprintf("%s/%s/entries/%d", c.cartsUrl(), c.id, entryIdx))
	if err != nil {
		slog.DebugContext(ctx, "cart entry removal failed", "entry", entryIdx, "err", err)
		return
	}
	if !res.IsSuccess() {
		slog.DebugContext(ctx, "cart entry removal rejected", "entry", entryIdx, "status", res.StatusCode())
	}
}
