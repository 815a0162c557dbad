package sanpablo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmaprice-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// fakeStorefront mimics the subset of the storefront API the scraper
// depends on.
type fakeStorefront struct {
	t *testing.T

	failSearch     bool
	failCartCreate bool
	failAddEntry   bool
	cartKeyName    string

	entries []map[string]any

	searchCount int
	addCount    int
	removeCount int
}

func (f *fakeStorefront) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /rest/v2/fsp/products/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchCount++
		if f.failSearch {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.Equal(f.t, "MXN", r.URL.Query().Get("curr"))
		require.Equal(f.t, "es_MX", r.URL.Query().Get("lang"))
		require.Equal(f.t, "products(code,name)", r.URL.Query().Get("fields"))

		query := r.URL.Query().Get("query")
		if query == "7501234567890" || query == FreeTextQuery("7501234567890") {
			json.NewEncoder(w).Encode(map[string]any{
				"products": []map[string]string{
					{"code": "PROD1", "name": "Paracetamol 500mg"},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"products": []any{}})
	})

	mux.HandleFunc("GET /rest/v2/fsp/products/PROD1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(f.t, "FULL", r.URL.Query().Get("fields"))
		json.NewEncoder(w).Encode(map[string]any{
			"code": "PROD1",
			"name": "Paracetamol 500mg",
			"gtin": "7501234567890",
		})
	})

	mux.HandleFunc("POST /rest/v2/fsp/users/anonymous/carts", func(w http.ResponseWriter, r *http.Request) {
		if f.failCartCreate {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		key := f.cartKeyName
		if key == "" {
			key = "guid"
		}
		json.NewEncoder(w).Encode(map[string]string{key: "cart-123"})
	})

	mux.HandleFunc("POST /rest/v2/fsp/users/anonymous/carts/cart-123/entries", func(w http.ResponseWriter, r *http.Request) {
		f.addCount++
		if f.failAddEntry {
			w.WriteHeader(http.StatusConflict)
			return
		}
		var body struct {
			Product struct {
				Code string `json:"code"`
			} `json:"product"`
			Quantity int `json:"quantity"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(f.t, 1, body.Quantity)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /rest/v2/fsp/users/anonymous/carts/cart-123", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"entries": f.entries})
	})

	mux.HandleFunc("DELETE /rest/v2/fsp/users/anonymous/carts/cart-123/entries/0", func(w http.ResponseWriter, r *http.Request) {
		f.removeCount++
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func setupFake(t *testing.T, f *fakeStorefront) (ClientOptions, func()) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/sanpablo")

	f.t = t
	server := httptest.NewServer(f.handler())

	opts := ClientOptions{
		Http:    resty.New(),
		ApiHost: server.URL,
	}
	return opts, func() {
		server.Close()
		cleanup()
	}
}

func cartEntry(base, total float64) map[string]any {
	return map[string]any{
		"entryNumber": 0,
		"product":     map[string]string{"code": "PROD1", "name": "Paracetamol 500mg Caja"},
		"basePrice":   map[string]any{"value": base, "formattedValue": fmt.Sprintf("$%.2f", base)},
		"totalPrice":  map[string]any{"value": total, "formattedValue": fmt.Sprintf("$%.2f", total)},
	}
}

func TestSearchAndDetail(t *testing.T) {
	fake := &fakeStorefront{}
	opts, cleanup := setupFake(t, fake)
	defer cleanup()

	ctx := context.Background()
	client := NewClient(opts)

	candidates := client.Search(ctx, "7501234567890")
	require.Len(t, candidates, 1)
	require.Equal(t, "PROD1", candidates[0].Code)

	detail := client.Detail(ctx, candidates[0].Code)
	require.True(t, Matches(detail, "7501234567890"))

	candidates = client.Search(ctx, "0000000000")
	require.Empty(t, candidates)
}

func TestSearchDegradesToEmpty(t *testing.T) {
	fake := &fakeStorefront{failSearch: true}
	opts, cleanup := setupFake(t, fake)
	defer cleanup()

	candidates := NewClient(opts).Search(context.Background(), "7501234567890")
	require.Empty(t, candidates)
}

func TestCartLifecycle(t *testing.T) {
	fake := &fakeStorefront{entries: []map[string]any{cartEntry(200, 180)}}
	opts, cleanup := setupFake(t, fake)
	defer cleanup()

	ctx := context.Background()
	cart := NewCart(opts)

	require.NoError(t, cart.Create(ctx))
	require.NoError(t, cart.AddEntry(ctx, "PROD1", 1))

	// the one-line invariant is enforced, not just convention
	require.ErrorIs(t, cart.AddEntry(ctx, "PROD2", 1), ErrCartOccupied)

	quote, err := cart.Prices(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "200.00", quote.Base.StringFixed(2))
	require.Equal(t, "180.00", quote.Total.StringFixed(2))
	require.Equal(t, "180.00", quote.Promo().StringFixed(2))
	require.Equal(t, "Paracetamol 500mg Caja", quote.Name)

	cart.RemoveEntry(ctx, 0)
	require.NoError(t, cart.AddEntry(ctx, "PROD1", 1))
}

func TestCartRemoveIdempotent(t *testing.T) {
	fake := &fakeStorefront{entries: []map[string]any{cartEntry(150, 150)}}
	opts, cleanup := setupFake(t, fake)
	defer cleanup()

	ctx := context.Background()
	cart := NewCart(opts)
	require.NoError(t, cart.Create(ctx))

	// removing from an empty cart must not break the following add
	cart.RemoveEntry(ctx, 0)
	cart.RemoveEntry(ctx, 0)
	require.NoError(t, cart.AddEntry(ctx, "PROD1", 1))

	quote, err := cart.Prices(ctx, 0)
	require.NoError(t, err)
	require.Nil(t, quote.Promo())
}

func TestCartIdFromCodeKey(t *testing.T) {
	fake := &fakeStorefront{cartKeyName: "code", entries: []map[string]any{cartEntry(100, 100)}}
	opts, cleanup := setupFake(t, fake)
	defer cleanup()

	cart := NewCart(opts)
	require.NoError(t, cart.Create(context.Background()))
	require.NoError(t, cart.AddEntry(context.Background(), "PROD1", 1))
}

func TestCartCreateFailureIsFatal(t *testing.T) {
	fake := &fakeStorefront{failCartCreate: true}
	opts, cleanup := setupFake(t, fake)
	defer cleanup()

	cart := NewCart(opts)
	require.Error(t, cart.Create(context.Background()))
	require.ErrorIs(t, cart.AddEntry(context.Background(), "PROD1", 1), ErrCartNotCreated)
}

func TestCartEmptyPricesError(t *testing.T) {
	fake := &fakeStorefront{entries: []map[string]any{}}
	opts, cleanup := setupFake(t, fake)
	defer cleanup()

	cart := NewCart(opts)
	require.NoError(t, cart.Create(context.Background()))

	_, err := cart.Prices(context.Background(), 0)
	require.Error(t, err)
}
