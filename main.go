package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gesetzebank/config/database"
	"gesetzebank/internal/export"
	"gesetzebank/internal/gii"
	"gesetzebank/internal/law/repository"
	"gesetzebank/internal/law/service"
	"gesetzebank/internal/location"
	"gesetzebank/pkg/logger"

	"github.com/joho/godotenv"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gesetzebank <download|ingest|export>")
	os.Exit(2)
}

func main() {
	// Load environment variables from a .env file when present.
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables from OS")
	}
	logger.Init()
	defer logger.Log.Sync()

	if len(os.Args) < 2 {
		usage()
	}

	dataDir := strings.TrimSpace(os.Getenv("DATA_DIR"))
	if dataDir == "" {
		dataDir = "./data"
	}
	store := location.NewStore(dataDir)
	ctx := context.Background()

	switch os.Args[1] {
	case "download":
		svc := service.NewIngestService(nil, store, gii.NewClient())
		if err := svc.DownloadLaws(ctx); err != nil {
			logger.Sugar.Fatalf("Download failed: %v", err)
		}

	case "ingest":
		db := database.Connect()
		defer db.Close()
		svc := service.NewIngestService(repository.NewLawRepository(db), store, gii.NewClient())
		svc.StrictCollisions = os.Getenv("SLUG_COLLISIONS") == "strict"
		if err := svc.IngestFromLocation(ctx); err != nil {
			logger.Sugar.Fatalf("Ingest failed: %v", err)
		}

	case "export":
		db := database.Connect()
		defer db.Close()
		exportDir := strings.TrimSpace(os.Getenv("EXPORT_DIR"))
		if exportDir == "" {
			exportDir = "."
		}
		if err := export.Corpus(repository.NewLawRepository(db), exportDir); err != nil {
			logger.Sugar.Fatalf("Export failed: %v", err)
		}

	default:
		usage()
	}
}
