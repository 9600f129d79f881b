package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/account"
	"github.com/staturevogue/storefront/internal/cart"
	"github.com/staturevogue/storefront/internal/cart/sqlite"
	"github.com/staturevogue/storefront/internal/catalog"
	"github.com/staturevogue/storefront/internal/checkout"
	"github.com/staturevogue/storefront/internal/config"
	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/lifecycle"
	"github.com/staturevogue/storefront/internal/pricing"
	"github.com/staturevogue/storefront/internal/storefront"
)

func usage() {
	fmt.Println("Usage: go run cmd/buyer/main.go <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  add <product> <color> <size> [qty]      add a variant to the cart")
	fmt.Println("  cart                                    show the cart and its price breakdown")
	fmt.Println("  remove <line-id>                        remove a cart line")
	fmt.Println("  checkout <COD|Online> <buyer.json> [coupon]")
	fmt.Println("  orders <email>                          list placed orders")
	fmt.Println("  cancel <order-id>                       cancel an order")
	fmt.Println("  return|exchange <order-id> <item-id> <reason> <video>")
}

func main() {
	if len(os.Args) < 2 {
		usage()
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(cfg.Storefront.CartPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create cart directory: %v\n", err)
		os.Exit(1)
	}
	db, err := sqlite.Open(cfg.Storefront.CartPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open cart: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := cart.Open(ctx, db, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load cart: %v\n", err)
		os.Exit(1)
	}

	client := storefront.NewClient(cfg.Storefront, logger)
	session := checkout.NewSession(store, client, logger)
	orders := account.NewService(client, lifecycle.Days(cfg.Lifecycle.ReturnWindowDays), logger)

	args := os.Args[2:]
	switch os.Args[1] {
	case "add":
		err = addToCart(ctx, client, store, args)
	case "cart":
		err = showCart(ctx, session)
	case "remove":
		if len(args) < 1 {
			err = fmt.Errorf("remove needs a line id")
			break
		}
		err = store.Remove(ctx, args[0])
	case "checkout":
		err = placeOrder(ctx, session, args)
	case "orders":
		err = listOrders(ctx, orders, args)
	case "cancel":
		err = cancelOrder(ctx, orders, args)
	case "return", "exchange":
		err = requestAction(ctx, orders, domain.ActionType(os.Args[1]), args)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func addToCart(ctx context.Context, client *storefront.Client, store *cart.Store, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("add needs <product> <color> <size>")
	}
	qty := 1
	if len(args) > 3 {
		n, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[3])
		}
		qty = n
	}

	product, err := client.GetProduct(ctx, args[0])
	if err != nil {
		return err
	}

	sel := catalog.NewSelection(catalog.NewResolver(product))
	sel.SelectColor(args[1])
	if err := sel.SelectSize(args[2]); err != nil {
		return err
	}
	line, err := sel.Line(qty)
	if err != nil {
		return err
	}

	result, err := store.Add(ctx, line)
	if err != nil {
		return err
	}
	if result.Merged {
		fmt.Printf("Quantity updated: %s %s/%s x%d\n", result.Line.Name, result.Line.Color, result.Line.Size, result.Line.Quantity)
	} else {
		fmt.Printf("Added: %s %s/%s x%d\n", result.Line.Name, result.Line.Color, result.Line.Size, result.Line.Quantity)
	}
	return nil
}

func showCart(ctx context.Context, session *checkout.Session) error {
	store := session.Cart()
	if store.LineCount() == 0 {
		fmt.Println("Cart is empty")
		return nil
	}

	for _, line := range store.Lines() {
		fmt.Printf("%s  %s %s/%s x%d @ %s\n", line.ID, line.Name, line.Color, line.Size, line.Quantity, line.Price.StringFixed(2))
	}

	if err := session.LoadConfig(ctx); err != nil {
		fmt.Printf("\nSubtotal: %s (pricing unavailable: %v)\n", store.Subtotal().StringFixed(2), err)
		return nil
	}
	b, err := session.Breakdown()
	if err != nil {
		return err
	}
	printBreakdown(b)
	return nil
}

func printBreakdown(b pricing.Breakdown) {
	fmt.Printf("\nSubtotal: %s\n", b.Subtotal.StringFixed(2))
	if b.CouponCode != "" {
		fmt.Printf("Discount: -%s (%s)\n", b.Discount.StringFixed(2), b.CouponCode)
	}
	fmt.Printf("Tax:      %s\n", b.Tax.StringFixed(2))
	if b.FreeShipping {
		fmt.Printf("Shipping: free\n")
	} else {
		fmt.Printf("Shipping: %s\n", b.Shipping.StringFixed(2))
	}
	if !b.CODFee.IsZero() {
		fmt.Printf("COD fee:  %s\n", b.CODFee.StringFixed(2))
	}
	fmt.Printf("Total:    %s\n", b.Total.StringFixed(2))
}

func placeOrder(ctx context.Context, session *checkout.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("checkout needs <COD|Online> <buyer.json>")
	}
	method, err := domain.ParsePaymentMethod(args[0])
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read buyer details: %w", err)
	}
	var buyer domain.Buyer
	if err := json.Unmarshal(data, &buyer); err != nil {
		return fmt.Errorf("parse buyer details: %w", err)
	}

	if err := session.LoadConfig(ctx); err != nil {
		return err
	}
	if err := session.SetPaymentMethod(method); err != nil {
		return err
	}
	if len(args) > 2 {
		applied, err := session.ApplyCoupon(ctx, args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Coupon %s applied: -%s\n", applied.Code, applied.Discount.StringFixed(2))
	}

	receipt, err := session.Submit(ctx, buyer)
	if err != nil {
		return err
	}

	fmt.Printf("Order placed: %s\n", receipt.OrderID)
	fmt.Printf("Total: %s\n", receipt.Total.StringFixed(2))
	if !receipt.COD {
		fmt.Printf("Complete payment for gateway order %s (%d %s, key %s)\n",
			receipt.GatewayOrderRef, receipt.AmountDue, receipt.Currency, receipt.KeyID)
	}
	return nil
}

func listOrders(ctx context.Context, svc *account.Service, args []string) error {
	email := ""
	if len(args) > 0 {
		email = args[0]
	}
	list, err := svc.Orders(ctx, email)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No orders")
		return nil
	}
	for _, o := range list {
		fmt.Printf("%s  %s  %s/%s  %s\n", o.ID, o.CreatedAt.Format("2006-01-02"), o.Status, o.PaymentStatus, o.TotalAmount.StringFixed(2))
		for _, item := range o.Items {
			fmt.Printf("    %s  %s %s/%s x%d  %s\n", item.ID, item.ProductID, item.Color, item.Size, item.Quantity, item.Status)
		}
	}
	return nil
}

func fetchOrder(ctx context.Context, svc *account.Service, raw string) (*domain.Order, error) {
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q", raw)
	}
	return svc.Order(ctx, orderID)
}

func cancelOrder(ctx context.Context, svc *account.Service, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("cancel needs an order id")
	}
	order, err := fetchOrder(ctx, svc, args[0])
	if err != nil {
		return err
	}
	fresh, err := svc.CancelOrder(ctx, order)
	if err != nil {
		return err
	}
	fmt.Printf("Order %s is now %s (payment %s)\n", fresh.ID, fresh.Status, fresh.PaymentStatus)
	return nil
}

func requestAction(ctx context.Context, svc *account.Service, action domain.ActionType, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("%s needs <order-id> <item-id> <reason> <video>", action)
	}
	order, err := fetchOrder(ctx, svc, args[0])
	if err != nil {
		return err
	}
	itemID, err := uuid.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[1])
	}

	f, err := os.Open(args[3])
	if err != nil {
		return fmt.Errorf("open evidence: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat evidence: %w", err)
	}

	item, err := svc.RequestItemAction(ctx, order, itemID, account.ItemActionRequest{
		Action:   action,
		Reason:   domain.ReasonCode(args[2]),
		Evidence: &account.Evidence{Name: filepath.Base(args[3]), Size: info.Size(), Body: f},
	})
	if err != nil {
		return err
	}
	fmt.Printf("Item %s is now %s\n", item.ID, item.Status)
	return nil
}
