package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/staturevogue/storefront/internal/config"
	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/repository/postgres"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run cmd/create-admin/main.go <admin-name> <api-key>")
		fmt.Println("Example: go run cmd/create-admin/main.go \"Returns Desk\" \"returns-desk-key-12345\"")
		os.Exit(1)
	}

	adminName := os.Args[1]
	apiKey := os.Args[2]
	if len(apiKey) < 12 {
		fmt.Fprintln(os.Stderr, "API key must be at least 12 characters")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to migrate database: %v\n", err)
		os.Exit(1)
	}

	// Hash the API key
	apiKeyHash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}

	repos := postgres.NewRepositories(db, logger)

	admin := &domain.Admin{
		Name:       adminName,
		APIKeyHash: string(apiKeyHash),
		IsActive:   true,
	}

	if err := repos.Admin.Create(context.Background(), admin); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Admin created.\n\n")
	fmt.Printf("Admin ID: %s\n", admin.ID.String())
	fmt.Printf("Admin Name: %s\n", admin.Name)
	fmt.Printf("API Key: %s\n", apiKey)
	fmt.Printf("\nIMPORTANT: store this key now, it cannot be shown again.\n")
	fmt.Printf("\nSend it on admin routes as:\n")
	fmt.Printf("Authorization: Bearer %s\n", apiKey)
}
