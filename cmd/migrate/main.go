package main

import (
	"log"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/cityfix/internal/config"
	"github.com/fdg312/cityfix/internal/dbmigrate"
)

// Usage: go run ./cmd/migrate [up|status|down] [dir]
// Without dir the migrations embedded into the binary are applied.
func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: go run ./cmd/migrate [up|status|down] [dir]")
	}

	command := os.Args[1]
	switch command {
	case "up", "status", "down":
	default:
		log.Fatalf("unsupported command %q (allowed: up, status, down)", command)
	}

	dir := dbmigrate.DefaultMigrationsDir
	if len(os.Args) > 2 {
		dir = strings.TrimSpace(os.Args[2])
	}

	cfg := config.Load()
	if mode := cfg.ResolvedStorageMode(); mode != config.StorageModePostgres {
		log.Fatalf("migrate: only postgres storage uses migrations (resolved STORAGE_MODE=%s)", mode)
	}

	dbURL, source, warning, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	if warning != "" {
		log.Printf("WARN migrate: %s", warning)
	}
	source += " dir=" + describeDir(dir)
	log.Printf("migrate: command=%s using=%s", command, source)

	if err := dbmigrate.Run(command, dbURL, dir); err != nil {
		log.Fatal(err)
	}

	log.Printf("migrate: %s completed successfully", command)
}

func describeDir(dir string) string {
	if dir == dbmigrate.DefaultMigrationsDir {
		return "(embedded)"
	}
	return dir
}
