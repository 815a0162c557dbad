// Package scrapepool fans a barcode list out over a bounded pool of
// workers, one price lookup per barcode, and reassembles the results
// in input order.
package scrapepool

import (
	"context"
	"log/slog"
	"sync"

	"farmaprice-backend/lib/pricetable"
	"farmaprice-backend/lib/timezone"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scrapepool")

// PriceFunc resolves one barcode to a price. (nil, nil) means the
// product isn't listed.
type PriceFunc func(ctx context.Context, code string) (*decimal.Decimal, error)

type Options struct {
	Workers int
	// lookups per second across the whole pool, zero means unlimited
	Rate rate.Limit
	// the Origen column value stamped on every row
	Source string
}

// Collect runs fetch for every barcode and returns exactly one row per
// input, in input order. Individual lookup failures degrade to rows
// with an absent price, they never abort the batch.
func Collect(ctx context.Context, codes []string, fetch PriceFunc, opts Options) []pricetable.SourcePrice {
	ctx, span := tracer.Start(ctx, "scrapepool:Collect")
	defer span.End()

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	limit := opts.Rate
	if limit == 0 {
		limit = rate.Inf
	}
	limiter := rate.NewLimiter(limit, 1)

	rows := make([]pricetable.SourcePrice, len(codes))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rows[i] = resolve(ctx, limiter, fetch, codes[i], opts.Source)
			}
		}()
	}

	for i := range codes {
		select {
		case jobs <- i:
		case <-ctx.Done():
			// fill whatever the workers won't get to
			for ; i < len(codes); i++ {
				rows[i] = pricetable.SourcePrice{
					Barcode: codes[i],
					Date:    timezone.Now(),
					Source:  opts.Source,
				}
			}
			close(jobs)
			wg.Wait()
			return rows
		}
	}
	close(jobs)
	wg.Wait()
	return rows
}

func resolve(ctx context.Context, limiter *rate.Limiter, fetch PriceFunc, code string, source string) pricetable.SourcePrice {
	row := pricetable.SourcePrice{
		Barcode: code,
		Date:    timezone.Now(),
		Source:  source,
	}

	err := limiter.Wait(ctx)
	if err != nil {
		return row
	}

	price, err := fetch(ctx, code)
	if err != nil {
		slog.WarnContext(ctx, "price lookup failed", "barcode", code, "source", source, "err", err)
		return row
	}

	row.Price = price
	return row
}
