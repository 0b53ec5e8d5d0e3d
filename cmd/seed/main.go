package main

import (
	"log"

	"github.com/grovehq/grove/internal/config"
	"github.com/grovehq/grove/internal/db"
)

// Seeds the database with demo orgs, users, profiles and embeddings.
func main() {
	cfg := config.New()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("seed complete")
}
