package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ticketing-engine/internal/config"
	"ticketing-engine/internal/database"
)

func main() {
	var (
		up     = flag.Bool("up", false, "Run all pending migrations")
		status = flag.Bool("status", false, "Show migration status")
	)
	flag.Parse()

	if !*up && !*status {
		fmt.Println("Usage: migrate -up | -status")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	switch {
	case *up:
		if err := db.RunMigrations(); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		fmt.Println("Migrations completed")
	case *status:
		if err := db.GetMigrationStatus(); err != nil {
			log.Fatalf("failed to get migration status: %v", err)
		}
	}
}
