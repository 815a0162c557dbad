package scrapepool

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"farmaprice-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCollectPreservesOrder(t *testing.T) {
	defer telemetry.SetupForTesting(t, "test:scrapepool")()

	codes := make([]string, 50)
	for i := range codes {
		codes[i] = fmt.Sprintf("750%010d", i)
	}

	fetch := func(ctx context.Context, code string) (*decimal.Decimal, error) {
		d := decimal.NewFromInt(int64(len(code)))
		return &d, nil
	}

	rows := Collect(context.Background(), codes, fetch, Options{
		Workers: 8,
		Source:  "Prueba",
	})
	require.Len(t, rows, len(codes))

	var got []string
	for _, row := range rows {
		got = append(got, row.Barcode)
		require.NotNil(t, row.Price)
		require.Equal(t, "Prueba", row.Source)
	}
	require.Empty(t, cmp.Diff(codes, got))
}

func TestCollectDegradesOnFailure(t *testing.T) {
	defer telemetry.SetupForTesting(t, "test:scrapepool")()

	fetch := func(ctx context.Context, code string) (*decimal.Decimal, error) {
		if code == "bad" {
			return nil, fmt.Errorf("storefront rejected the request")
		}
		d := decimal.NewFromInt(10)
		return &d, nil
	}

	rows := Collect(context.Background(), []string{"a", "bad", "b"}, fetch, Options{Workers: 2, Source: "Prueba"})
	require.Len(t, rows, 3)
	require.NotNil(t, rows[0].Price)
	require.Nil(t, rows[1].Price)
	require.NotNil(t, rows[2].Price)
}

func TestCollectBoundsConcurrency(t *testing.T) {
	defer telemetry.SetupForTesting(t, "test:scrapepool")()

	var active, peak atomic.Int32
	gate := make(chan struct{})

	fetch := func(ctx context.Context, code string) (*decimal.Decimal, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-gate
		active.Add(-1)
		return nil, nil
	}

	codes := []string{"1", "2", "3", "4", "5", "6"}
	done := make(chan struct{})
	go func() {
		Collect(context.Background(), codes, fetch, Options{Workers: 2, Source: "Prueba"})
		close(done)
	}()

	// release every job, then verify no more than two ran at once
	for range codes {
		gate <- struct{}{}
	}
	<-done
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestCollectCancelledContext(t *testing.T) {
	defer telemetry.SetupForTesting(t, "test:scrapepool")()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(ctx context.Context, code string) (*decimal.Decimal, error) {
		d := decimal.NewFromInt(10)
		return &d, nil
	}

	rows := Collect(ctx, []string{"a", "b", "c"}, fetch, Options{Workers: 2, Source: "Prueba"})
	require.Len(t, rows, 3)
	for i, row := range rows {
		require.Equal(t, []string{"a", "b", "c"}[i], row.Barcode)
	}
}
