package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/aq2208/storefront-api/configs"
	"github.com/aq2208/storefront-api/internal/adapter/repo"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/seed"
	"github.com/aq2208/storefront-api/internal/usecase"
)

func main() {
	var (
		csvPath   string
		configDir string
	)
	flag.StringVar(&csvPath, "file", "", "CSV file of products (title,price,currency,inventory_count,can_purchase)")
	flag.StringVar(&configDir, "config-dir", "configs", "Directory holding base.yaml and <env>.yaml")
	flag.Parse()
	if csvPath == "" {
		log.Fatal("-file is required")
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	cfg, err := configs.Load(configDir, env)
	if err != nil {
		log.Fatal(err)
	}
	l := logging.Init("storefront-seed", "", cfg.App.LogLevel)
	ctx := logging.WithCtx(context.Background(), l)

	f, err := os.Open(csvPath)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	rows, err := seed.ParseProducts(f)
	if err != nil {
		log.Fatalf("parse %s: %v", csvPath, err)
	}

	store, err := repo.Open(ctx, repo.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	catalog := usecase.NewCatalog(store, repo.NewProductRepo(store))
	created, err := seed.Load(ctx, store, catalog, rows)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	l.Info("seed complete", "file", csvPath, "products", len(created))
}
