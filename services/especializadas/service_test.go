package especializadas

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"farmaprice-backend/lib/storage"
	"farmaprice-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

// fakeStorefront serves a search page per known barcode plus the
// product page its result links to.
func fakeStorefront(prices map[string]string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /catalogsearch/result/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("q")
		if _, ok := prices[code]; !ok {
			fmt.Fprint(w, `<html><body><p>No se encontraron resultados</p></body></html>`)
			return
		}
		fmt.Fprintf(
			w,
			`<html><body><a class="product-item-link" href="http://%s/producto/%s">Producto</a></body></html>`,
			r.Host, code,
		)
	})

	mux.HandleFunc("GET /producto/{code}", func(w http.ResponseWriter, r *http.Request) {
		price := prices[r.PathValue("code")]
		fmt.Fprintf(
			w,
			`<html><body><span data-price-amount="%s" class="price">$%s</span></body></html>`,
			price, price,
		)
	})

	return mux
}

func setup(t *testing.T, prices map[string]string) (Service, *storage.Memory, func()) {
	cleanup := telemetry.SetupForTesting(t, "test:services/especializadas")

	server := httptest.NewServer(fakeStorefront(prices))
	store := storage.NewMemory()

	service, err := NewService(store, Options{BaseUrl: server.URL})
	require.NoError(t, err)

	return service, store, func() {
		server.Close()
		cleanup()
	}
}

func putBarcodeCSV(t *testing.T, store *storage.Memory, name string, codes []string) {
	rows := "Barra\n" + strings.Join(codes, "\n") + "\n"
	require.NoError(t, store.Put(context.Background(), name, []byte(rows)))
}

func TestHandleTrigger(t *testing.T) {
	service, store, cleanup := setup(t, map[string]string{
		"7501234567890": "122.50",
		"7509876543210": "88.00",
	})
	defer cleanup()

	putBarcodeCSV(t, store, "codigo_barra_scrapping.csv", []string{
		"7501234567890",
		"0000000000000", // not listed
		"7509876543210",
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/scrapingFarmacia", nil)
	service.HandleTrigger(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Status  string `json:"status"`
		Message string `json:"mensaje"`
		Records int    `json:"registros"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	require.Equal(t, "ok", status.Status)
	require.Equal(t, 3, status.Records)

	names := store.Names()
	var outName string
	for _, name := range names {
		if strings.HasPrefix(name, "Scrapping/Farmacias_Especializadas/precios_farmacias_especializadas_") {
			outName = name
		}
	}
	require.NotEmpty(t, outName)
	require.Contains(t, status.Message, outName)

	data, err := store.Get(context.Background(), outName)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"Barra", "Precio", "Fecha", "Origen"}, rows[0])
	require.Len(t, rows, 4)

	require.Equal(t, "122.50", rows[1][1])
	require.Equal(t, "", rows[2][1]) // unlisted barcode keeps its row
	require.Equal(t, "88.00", rows[3][1])
	for _, row := range rows[1:] {
		require.Equal(t, "Farmacias Especializadas", row[3])
	}
}

func TestHandleTriggerCustomInputObject(t *testing.T) {
	service, store, cleanup := setup(t, map[string]string{"7501234567890": "10.00"})
	defer cleanup()

	putBarcodeCSV(t, store, "otros/lote.csv", []string{"7501234567890"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/scrapingFarmacia?csv_path=otros/lote.csv", nil)
	service.HandleTrigger(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleTriggerMissingInput(t *testing.T) {
	service, _, cleanup := setup(t, nil)
	defer cleanup()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/scrapingFarmacia", nil)
	service.HandleTrigger(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var status struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	require.Equal(t, "error", status.Status)
}

func TestHandleTriggerMalformedInput(t *testing.T) {
	service, store, cleanup := setup(t, nil)
	defer cleanup()

	// a csv without the expected column is a fatal input error
	require.NoError(t, store.Put(context.Background(), "codigo_barra_scrapping.csv", []byte("Codigo\n123\n")))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/scrapingFarmacia", nil)
	service.HandleTrigger(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
