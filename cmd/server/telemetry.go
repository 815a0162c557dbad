package main

import (
	"context"
	"log/slog"
	"os"

	"farmaprice-backend/lib/restyutil"
	scraperespecializadas "farmaprice-backend/lib/scrapers/especializadas"
	scraperfarmatodo "farmaprice-backend/lib/scrapers/farmatodo"
	scrapersanpablo "farmaprice-backend/lib/scrapers/sanpablo"
	"farmaprice-backend/lib/serviceutil"
	"farmaprice-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")

		scrapersanpablo.SetRestyInstrumentOutput(
			restyutil.NewFilesystemOutput(".dev/resty/sanpablo"),
		)
		scraperespecializadas.SetRestyInstrumentOutput(
			restyutil.NewFilesystemOutput(".dev/resty/especializadas"),
		)
		scraperfarmatodo.SetRestyInstrumentOutput(
			restyutil.NewFilesystemOutput(".dev/resty/farmatodo"),
		)
	}

	t, err := telemetry.SetupFromEnv(ctx, "server")
	if os.IsNotExist(err) {
		slog.InfoContext(ctx, "no telemetry.json5 found, running without exporters")
		return
	}
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		t.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)
}
