package sanpablo

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"farmaprice-backend/lib/pricetable"
	"farmaprice-backend/lib/serviceutil"
	"farmaprice-backend/lib/timezone"
	"farmaprice-backend/lib/upclist"
)

const defaultUpcObject = "upc_list.json"

// HandleTrigger runs a batch for the UPC list named by the `upc_path`
// query parameter. Input load failures, session setup and cart
// creation are the only fatal conditions, they surface as a structured
// error payload with zero rows written.
func (s Service) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.InfoContext(ctx, "san pablo scraping triggered")

	upcObject := r.URL.Query().Get("upc_path")
	if upcObject == "" {
		upcObject = defaultUpcObject
	}

	data, err := s.store.Get(ctx, upcObject)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load upc list", "object", upcObject, "err", err)
		serviceutil.WriteTriggerError(w, err)
		return
	}
	upcs, err := upclist.Parse(data)
	if err != nil {
		slog.ErrorContext(ctx, "malformed upc list", "object", upcObject, "err", err)
		serviceutil.WriteTriggerError(w, err)
		return
	}

	records, err := s.Run(ctx, upcs)
	if err != nil {
		slog.ErrorContext(ctx, "batch run failed", "err", err)
		serviceutil.WriteTriggerError(w, err)
		return
	}

	encoded, err := pricetable.EncodeCSV(records)
	if err != nil {
		serviceutil.WriteTriggerError(w, err)
		return
	}

	stem := strings.TrimSuffix(path.Base(upcObject), path.Ext(upcObject))
	outObject := fmt.Sprintf(
		"Scrapping/SanPablo/precios_%s_%s.csv",
		stem,
		timezone.Now().Format("20060102_150405"),
	)
	err = s.store.Put(ctx, outObject, encoded)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upload results", "object", outObject, "err", err)
		serviceutil.WriteTriggerError(w, err)
		return
	}

	slog.InfoContext(ctx, "batch completed", "upcs", len(upcs), "output", outObject)
	serviceutil.WriteTriggerOK(
		w,
		fmt.Sprintf("Lote %s procesado correctamente. Archivo %s subido.", upcObject, outObject),
		len(records),
	)
}
