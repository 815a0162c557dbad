// Package especializadas exposes the Farmacias Especializadas batch
// scraper as a trigger endpoint. Unlike San Pablo there is no shared
// cart state, so lookups run concurrently over a worker pool.
package especializadas

import (
	"fmt"
	"log/slog"
	"net/http"

	"farmaprice-backend/lib/pricetable"
	"farmaprice-backend/lib/scrapepool"
	scraper "farmaprice-backend/lib/scrapers/especializadas"
	"farmaprice-backend/lib/serviceutil"
	"farmaprice-backend/lib/storage"
	"farmaprice-backend/lib/timezone"

	"golang.org/x/time/rate"
)

const sourceName = "Farmacias Especializadas"

const defaultBarcodeObject = "codigo_barra_scrapping.csv"

// each lookup costs two page fetches, keep the pool polite
const workers = 5
const requestRate = rate.Limit(4)

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
		return Service{}, fmt.Errorf("failed to build especializadas client: %w", err)
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
	slog.InfoContext(ctx, "especializadas scraping triggered")

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
		"Scrapping/Farmacias_Especializadas/precios_farmacias_especializadas_%s.csv",
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
