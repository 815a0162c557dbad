// Package sanpablo orchestrates San Pablo batch runs: one browser
// session and one anonymous cart per batch, every input identifier
// processed sequentially end to end. The cart is shared mutable state,
// sharding it would mean one cart and one browser context per worker,
// so this pipeline deliberately stays single threaded.
package sanpablo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"farmaprice-backend/lib/browser"
	"farmaprice-backend/lib/pricetable"
	scraper "farmaprice-backend/lib/scrapers/sanpablo"
	"farmaprice-backend/lib/storage"
	"farmaprice-backend/lib/timezone"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/sanpablo")

// NotFoundName marks identifiers the storefront doesn't carry.
const NotFoundName = "No encontrado"

type Options struct {
	Browser browser.Options `json:"browser"`
	// test overrides, default to the live storefront
	ApiHost string `json:"api_host"`
	BaseWeb string `json:"base_web"`
}

type Service struct {
	store storage.Store
	opts  Options
}

func NewService(store storage.Store, opts Options) Service {
	return Service{
		store: store,
		opts:  opts,
	}
}

// Run executes a whole batch. Only session setup and cart creation can
// fail here, everything past that point degrades per identifier.
func (s Service) Run(ctx context.Context, upcs []string) ([]pricetable.Record, error) {
	ctx, span := tracer.Start(ctx, "service:Run")
	defer span.End()

	baseWeb := s.opts.BaseWeb
	if baseWeb == "" {
		baseWeb = scraper.BaseWeb
	}

	session, err := browser.Open(ctx, baseWeb, s.opts.Browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer session.Close()

	clientOpts := scraper.ClientOptions{
		Http:    session.HTTPClient(),
		ApiHost: s.opts.ApiHost,
	}
	client := scraper.NewClient(clientOpts)
	cart := scraper.NewCart(clientOpts)

	err = cart.Create(ctx)
	if err != nil {
		return nil, err
	}

	return runBatch(ctx, client, cart, upcs, scraper.SettleDelay), nil
}

// runBatch guarantees exactly one output record per input identifier,
// in input order.
func runBatch(ctx context.Context, client *scraper.Client, cart *scraper.Cart, upcs []string, settle time.Duration) []pricetable.Record {
	records := make([]pricetable.Record, 0, len(upcs))
	for i, upc := range upcs {
		slog.InfoContext(
			ctx, "processing upc",
			"index", i+1,
			"total", len(upcs),
			"upc", upc,
		)
		records = append(records, resolveOne(ctx, client, cart, upc, settle))
	}
	return records
}

// resolveOne runs the full pipeline for a single identifier. Any
// failure, panics included, becomes a placeholder record: one bad
// identifier must never take the batch down.
func resolveOne(ctx context.Context, client *scraper.Client, cart *scraper.Cart, upc string, settle time.Duration) (rec pricetable.Record) {
	ctx, span := tracer.Start(ctx, "service:resolveOne")
	defer span.End()

	rec = pricetable.Record{
		UPC:        upc,
		Name:       NotFoundName,
		CapturedAt: timezone.Now(),
	}
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic while processing upc", "upc", upc, "panic", r)
			rec = pricetable.Record{
				UPC:        upc,
				Name:       fmt.Sprintf("Error general al procesar %s: %v", upc, r),
				CapturedAt: timezone.Now(),
			}
		}
	}()

	candidates := client.Search(ctx, upc)
	if len(candidates) == 0 {
		// broaden with the storefront's free-text qualifier before
		// declaring the identifier unresolved
		candidates = client.Search(ctx, scraper.FreeTextQuery(upc))
	}
	if len(candidates) == 0 {
		return rec
	}

	// search results come back in the storefront's relevance order,
	// the first verified candidate wins
	var picked *scraper.ProductCandidate
	for _, candidate := range candidates {
		if candidate.Code == "" {
			continue
		}
		detail := client.Detail(ctx, candidate.Code)
		if scraper.Matches(detail, upc) {
			picked = &candidate
			break
		}
	}
	if picked == nil {
		return rec
	}
	rec.Name = strings.TrimSpace(picked.Name)

	err := cart.AddEntry(ctx, picked.Code, 1)
	if err != nil {
		slog.WarnContext(ctx, "failed to add product to cart", "upc", upc, "code", picked.Code, "err", err)
		return rec
	}

	// give the storefront time to recompute cart totals
	time.Sleep(settle)

	quote, err := cart.Prices(ctx, 0)
	if err != nil {
		slog.WarnContext(ctx, "failed to read cart prices", "upc", upc, "code", picked.Code, "err", err)
		cart.RemoveEntry(ctx, 0)
		return rec
	}

	if name := strings.TrimSpace(quote.Name); name != "" {
		rec.Name = name
	}
	rec.NonPromo = quote.Base
	rec.Promo = quote.Promo()
	rec.CapturedAt = timezone.Now()

	cart.RemoveEntry(ctx, 0)
	return rec
}
