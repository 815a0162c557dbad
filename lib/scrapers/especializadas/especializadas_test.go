package especializadas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmaprice-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<div class="product-item">
	<a class="product-item-link" href="%s/producto/paracetamol">Paracetamol 500mg</a>
</div>
</body></html>`

const emptySearchPage = `<html><body><p>No se encontraron resultados</p></body></html>`

func setup(t *testing.T, productPage string) (*Client, func()) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/especializadas")

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/catalogsearch/result/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "7501234567890" {
			fmt.Fprintf(w, searchPage, server.URL)
			return
		}
		fmt.Fprint(w, emptySearchPage)
	})
	mux.HandleFunc("/producto/paracetamol", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, productPage)
	})
	server = httptest.NewServer(mux)

	client, err := NewClient(ClientOptions{
		BaseUrl: server.URL,
		Http:    resty.New(),
	})
	require.NoError(t, err)

	return client, func() {
		server.Close()
		cleanup()
	}
}

func TestPriceFromDataAttribute(t *testing.T) {
	client, cleanup := setup(t, `<html><body>
		<span data-price-amount="122.50" class="price-wrapper"></span>
	</body></html>`)
	defer cleanup()

	price, err := client.Price(context.Background(), "7501234567890")
	require.NoError(t, err)
	require.NotNil(t, price)
	require.Equal(t, "122.50", price.StringFixed(2))
}

func TestPriceFromMetaTag(t *testing.T) {
	client, cleanup := setup(t, `<html><head>
		<meta itemprop="price" content="99.90">
	</head><body></body></html>`)
	defer cleanup()

	price, err := client.Price(context.Background(), "7501234567890")
	require.NoError(t, err)
	require.NotNil(t, price)
	require.Equal(t, "99.90", price.StringFixed(2))
}

func TestPriceFromSpanClasses(t *testing.T) {
	client, cleanup := setup(t, `<html><body>
		<span class="price">$1,350.00</span>
	</body></html>`)
	defer cleanup()

	price, err := client.Price(context.Background(), "7501234567890")
	require.NoError(t, err)
	require.NotNil(t, price)
	require.Equal(t, "1350.00", price.StringFixed(2))
}

func TestPriceRegexFallback(t *testing.T) {
	client, cleanup := setup(t, `<html><body>
		<p>Precio de oferta: $ 87.30 por pieza</p>
	</body></html>`)
	defer cleanup()

	price, err := client.Price(context.Background(), "7501234567890")
	require.NoError(t, err)
	require.NotNil(t, price)
	require.Equal(t, "87.30", price.StringFixed(2))
}

func TestPriceNotListed(t *testing.T) {
	client, cleanup := setup(t, `<html><body></body></html>`)
	defer cleanup()

	price, err := client.Price(context.Background(), "0000000000")
	require.NoError(t, err)
	require.Nil(t, price)
}
