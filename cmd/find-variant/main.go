package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/catalog"
	"github.com/staturevogue/storefront/internal/config"
	"github.com/staturevogue/storefront/internal/storefront"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/find-variant/main.go <product-id-or-slug> [color] [size]")
		fmt.Println("Example: go run cmd/find-variant/main.go classic-tee Black XL")
		os.Exit(1)
	}

	productID := os.Args[1]
	color, size := "", ""
	if len(os.Args) > 2 {
		color = os.Args[2]
	}
	if len(os.Args) > 3 {
		size = os.Args[3]
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

	client := storefront.NewClient(cfg.Storefront, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	product, err := client.GetProduct(ctx, productID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch product: %v\n", err)
		os.Exit(1)
	}

	resolver := catalog.NewResolver(product)
	if color == "" {
		color = resolver.DefaultColor()
	}
	if c, ok := resolver.ColorOf(color); ok && c.Name != color {
		fmt.Printf("Color %q not offered, showing %q\n\n", color, c.Name)
	}
	variant := resolver.Resolve(color, size)

	fmt.Printf("Product: %s (%s)\n", product.Name, product.ID)
	fmt.Printf("Base price: %s\n", product.BasePrice.StringFixed(2))
	fmt.Printf("\nColors:\n")
	for _, c := range product.Colors {
		labels := make([]string, 0, len(c.Sizes))
		for _, s := range resolver.SizesFor(c.Name) {
			labels = append(labels, fmt.Sprintf("%s(%d)", s.Label, s.Stock))
		}
		fmt.Printf("  %s: %s\n", c.Name, strings.Join(labels, " "))
	}

	fmt.Printf("\nSelection: %s / %s\n", variant.Color, orNone(variant.Size))
	fmt.Printf("  Price: %s\n", variant.Price.StringFixed(2))
	fmt.Printf("  Stock: %d\n", variant.Stock)
	fmt.Printf("  Purchasable: %t\n", resolver.IsPurchasable(variant.Color, variant.Size))
	if len(variant.Images) > 0 {
		fmt.Printf("  Image: %s\n", variant.Images[0])
	}

	if size != "" && !resolver.HasVariant(variant.Color, size) {
		fmt.Printf("\nSize %q is not offered in %s.\n", size, variant.Color)
		os.Exit(1)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(no size)"
	}
	return s
}
