// Package farmatodo exposes the FarmaTodo batch scraper as a trigger
// endpoint, a worker pool of single-page lookups.
package farmatodo

import (
	"fmt"
	"log/slog"
	"net/http"

	"farmaprice-backend/lib/pricetable"
	"farmaprice-backend/lib/scrapepool"
	scraper "farmaprice-backend/lib/scrapers/farmatodo"
	"farmaprice-backend/lib/serviceutil"
	"farmaprice-backend/lib/storage"
	"farmaprice-backend/lib/timezone"

	"golang.org/x/time/rate"
)

const sourceName = "FarmaTodo"

const defaultBarcodeObject = "codigo_barra_scrapping.csv"

// one page fetch per lookup, this storefront tolerates a larger pool
const workers = 10
const requestRate = rate.Limit(8)

type Options struct {
	// test override, defaults to the live storefront
	BaseUrl string `json:"base_url"`
}

type Service struct {
	store  storage.Store
	client *scraper.Client
}

func NewService(store storage.Store, opts Options) (Service, error) {
	client, err := scraper.NewClient(scraper.ClientOptions{BaseUrl: opts.BaseUrl})
	if err != nil {
		return Service{}, fmt.Errorf("failed to build farmatodo client: %w", err)
	}
	return Service{
		store:  store,
		client: client,
	}, nil
}

// HandleTrigger scrapes every barcode in the input artifact named by
// the `csv_path` query parameter and uploads the resulting price table.
func (s Service) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.InfoContext(ctx, "farmatodo scraping triggered")

	barcodeObject := r.URL.Query().Get("csv_path")
	if barcodeObject == "" {
		barcodeObject = defaultBarcodeObject
	}

	data, err := s.store.Get(ctx, barcodeObject)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load barcode list", "object", barcodeObject, "err", err)
		serviceutil.WriteTriggerError(w, err)
		return
	}
	codes, err := pricetable.ReadBarcodeCSV(data)
	if err != nil {
		slog.ErrorContext(ctx, "malformed barcode list", "object", barcodeObject, "err", err)
		serviceutil.WriteTriggerError(w, err)
		return
	}

	rows := scrapepool.Collect(ctx, codes, s.client.Price, scrapepool.Options{
		Workers: workers,
		Rate:    requestRate,
		Source:  sourceName,
	})

	encoded, err := pricetable.EncodeSourcePricesCSV(rows)
	if err != nil {
		serviceutil.WriteTriggerError(w, err)
		return
	}

	outObject := fmt.Sprintf(
		"Scrapping/FarmaTodo/precios_farmatodo_%s.csv",
		timezone.Now().Format("20060102"),
	)
	err = s.store.Put(ctx, outObject, encoded)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upload results", "object", outObject, "err", err)
		serviceutil.WriteTriggerError(w, err)
		return
	}

	slog.InfoContext(ctx, "batch completed", "barcodes", len(codes), "output", outObject)
	serviceutil.WriteTriggerOK(
		w,
		fmt.Sprintf("Scraping de %s completado. Archivo %s subido.", sourceName, outObject),
		len(rows),
	)
}
