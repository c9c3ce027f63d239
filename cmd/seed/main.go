// Package main provides a CLI tool for seeding game content from YAML files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dkrasner/grimoire/internal/config"
	"github.com/dkrasner/grimoire/internal/observability"
	"github.com/dkrasner/grimoire/internal/seed"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	contentDir := flag.String("content", "content", "directory of content YAML files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer logger.Sync()

	content, err := seed.LoadDir(*contentDir)
	if err != nil {
		log.Fatalf("loading content: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	db := pool.DB()
	seeder := seed.NewSeeder(logger,
		postgres.NewSkillRepository(db),
		postgres.NewTagRepository(db),
		postgres.NewRaceRepository(db),
		postgres.NewArchetypeRepository(db),
		postgres.NewItemRepository(db),
	)

	if err := seeder.Apply(ctx, content); err != nil {
		log.Fatalf("applying seed: %v", err)
	}

	fmt.Fprintf(os.Stdout, "seeded %d skills, %d tags, %d races, %d archetypes, %d items [%s]\n",
		len(content.Skills), len(content.Tags), len(content.Races),
		len(content.Archetypes), len(content.Items), time.Since(start))
}
