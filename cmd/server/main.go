package main

import (
	"flag"
	"net/http"

	"farmaprice-backend/lib/configutil"
	"farmaprice-backend/lib/serviceutil"
	"farmaprice-backend/lib/storage"
	"farmaprice-backend/services/especializadas"
	"farmaprice-backend/services/farmatodo"
	"farmaprice-backend/services/sanpablo"
)

type StorageConfig struct {
	// root directory of the object container
	Root string `json:"root"`
}

type Config struct {
	Port           int                    `json:"port"`
	Storage        StorageConfig          `json:"storage"`
	SanPablo       sanpablo.Options       `json:"sanpablo"`
	Especializadas especializadas.Options `json:"especializadas"`
	FarmaTodo      farmatodo.Options      `json:"farmatodo"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "data"
	}

	store := storage.NewDir(cfg.Storage.Root)

	sanPablo := sanpablo.NewService(store, cfg.SanPablo)
	farmacia, err := especializadas.NewService(store, cfg.Especializadas)
	if err != nil {
		serviceutil.Fatal("init especializadas", err)
	}
	farmaTodo, err := farmatodo.NewService(store, cfg.FarmaTodo)
	if err != nil {
		serviceutil.Fatal("init farmatodo", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/scrapingSanPablo", sanPablo.HandleTrigger)
	mux.HandleFunc("/scrapingFarmacia", farmacia.HandleTrigger)
	mux.HandleFunc("/scrapingFarmaTodo", farmaTodo.HandleTrigger)

	go serviceutil.StartHttpServer(cfg.Port, mux)
	<-ctx.Done()
}
