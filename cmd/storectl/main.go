// storectl is a CLI for exercising the storefront proxy.
// Each command performs a single operation, making it composable for scripts.
// The guest cart key is printed in quiet mode so it can be passed back with -cart-key.
//
// Commands:
//
//	storectl cart get    -proxy URL [-cart-key KEY] [-token JWT]
//	storectl cart add    -proxy URL -product ID [-variation ID] [-qty N] [-item-data JSON]
//	storectl cart update -proxy URL -item KEY -qty N
//	storectl cart remove -proxy URL -item KEY
//	storectl cart clear  -proxy URL
//	storectl cart coupon -proxy URL -code CODE
//	storectl wishlist get|add|remove|sync -proxy URL -token JWT -user JSON [-product ID]
//
// Examples:
//
//	KEY=$(storectl cart add -proxy http://localhost:8080 -product 60 -q)
//	storectl cart get -proxy http://localhost:8080 -cart-key "$KEY" -lang ar
//	storectl cart coupon -proxy http://localhost:8080 -cart-key "$KEY" -code 10OFF
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront-proxy/internal/cart"
	"storefront-proxy/internal/cocart"
	"storefront-proxy/internal/model"
	"storefront-proxy/internal/reconcile"
	"storefront-proxy/internal/storefront"
	"storefront-proxy/internal/swr"
	"storefront-proxy/internal/wishlist"
)

// Global flags (apply to all commands)
type globalFlags struct {
	proxyURL string
	cartKey  string
	token    string
	user     string
	lang     string
	currency string
	quiet    bool
	noColor  bool
}

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow, colorCyan, colorGray = "", "", "", "", "", ""
}

func main() {
	if len(os.Args) < 3 {
		printUsage()
		os.Exit(1)
	}

	group, cmd, args := os.Args[1], os.Args[2], os.Args[3:]
	switch group {
	case "cart":
		runCart(cmd, args)
	case "wishlist":
		runWishlist(cmd, args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", group)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `storectl - storefront proxy test tool

Usage:
  storectl cart <get|add|update|remove|clear|coupon> [options]
  storectl wishlist <get|add|remove|sync> [options]

Examples:
  # Add a product and capture the guest cart key
  KEY=$(storectl cart add -proxy http://localhost:8080 -product 60 -q)

  # Add a bundle
  storectl cart add -proxy http://localhost:8080 -cart-key "$KEY" -product 61 \
    -item-data '{"bundle_items":[{"product_id":7,"quantity":2}],"box_price":"1.500"}'

  # Show the cart in Arabic
  storectl cart get -proxy http://localhost:8080 -cart-key "$KEY" -lang ar

Run 'storectl <group> <command> -h' for command-specific options.
`)
}

func newFlagSet(name string, g *globalFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&g.proxyURL, "proxy", "http://localhost:8080", "storefront proxy base URL")
	fs.StringVar(&g.cartKey, "cart-key", "", "guest cart key from a previous call")
	fs.StringVar(&g.token, "token", "", "customer bearer token (asl_auth_token)")
	fs.StringVar(&g.user, "user", "", `customer JSON for asl_auth_user, e.g. {"id":7}`)
	fs.StringVar(&g.lang, "lang", "en", "language: en or ar")
	fs.StringVar(&g.currency, "currency", "", "display currency")
	fs.BoolVar(&g.quiet, "q", false, "quiet mode - only output the cart key or count")
	fs.BoolVar(&g.noColor, "no-color", false, "disable colored output")
	return fs
}

// newClient builds a client carrying the session cookies from the flags.
func newClient(g *globalFlags) *storefront.Client {
	if g.noColor {
		disableColors()
	}
	c, err := storefront.New(storefront.Config{
		BaseURL:  g.proxyURL,
		Lang:     g.lang,
		Currency: g.currency,
	})
	if err != nil {
		fatal("Creating client: %v", err)
	}
	if g.cartKey != "" {
		c.SetCookie(model.CookieCartKey, g.cartKey)
	}
	if g.token != "" {
		c.SetCookie(model.CookieToken, g.token)
	}
	if g.user != "" {
		c.SetCookie(model.CookieUser, url.QueryEscape(g.user))
	}
	return c
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storefront.DefaultTimeout+5*time.Second)
}

// =============================================================================
// CART COMMANDS
// =============================================================================

func runCart(cmd string, args []string) {
	var g globalFlags
	fs := newFlagSet("cart "+cmd, &g)
	var (
		productID   int
		variationID int
		qty         int
		itemKey     string
		code        string
		itemData    string
	)
	fs.IntVar(&productID, "product", 0, "product ID (add)")
	fs.IntVar(&variationID, "variation", 0, "variation ID (add)")
	fs.IntVar(&qty, "qty", 1, "quantity (add, update)")
	fs.StringVar(&itemKey, "item", "", "cart item key (update, remove)")
	fs.StringVar(&code, "code", "", "coupon code (coupon)")
	fs.StringVar(&itemData, "item-data", "", "bundle item data as JSON (add)")
	fs.Parse(args)

	client := newClient(&g)
	store := storefront.NewCartStore(client, swr.Options{})
	ctx, cancel := commandContext()
	defer cancel()

	var (
		c   *cocart.Cart
		err error
	)
	switch cmd {
	case "get":
		c, err = store.Get(ctx)
	case "add":
		if productID <= 0 {
			fatal("-product is required")
		}
		req := cart.Request{Action: cart.OpAdd, ProductID: cart.ID(productID), VariationID: cart.ID(variationID), Quantity: &qty}
		if itemData != "" {
			if err := json.Unmarshal([]byte(itemData), &req.ItemData); err != nil {
				fatal("Invalid -item-data: %v", err)
			}
		}
		c, err = store.Add(ctx, req)
	case "update":
		if itemKey == "" {
			fatal("-item is required")
		}
		c, err = store.Update(ctx, itemKey, qty)
	case "remove":
		if itemKey == "" {
			fatal("-item is required")
		}
		c, err = store.Remove(ctx, itemKey)
	case "clear":
		c, err = store.Clear(ctx)
	case "coupon":
		if code == "" {
			fatal("-code is required")
		}
		c, err = store.ApplyCoupon(ctx, code)
	default:
		fatal("Unknown cart command: %s", cmd)
	}
	if err != nil {
		fatalAPI("cart "+cmd, err)
	}

	key := client.Cookie(model.CookieCartKey)
	if g.quiet {
		fmt.Println(key)
		return
	}
	printSuccess("cart %s", cmd)
	printCart(c, key)
}

func printCart(c *cocart.Cart, key string) {
	if key != "" {
		fmt.Printf("  Cart key: %s%s%s\n", colorCyan, key, colorReset)
	}
	if c == nil {
		return
	}
	fmt.Printf("  Items: %d\n", c.ItemCount)
	for _, it := range c.Items {
		marker := ""
		if _, ok := it.CartItemData["bundle_items"]; ok {
			marker = colorYellow + " [bundle]" + colorReset
		}
		fmt.Printf("    - %s%s%s x%d %s (%s)%s\n",
			colorGray, it.ItemKey, colorReset, it.Quantity.Value, it.Name,
			formatMinor(string(it.Totals.Total), c.Currency), marker)
	}
	for _, cp := range c.Coupons {
		fmt.Printf("  Coupon: %s\n", cp.Coupon)
	}
	fmt.Printf("  Total: %s%s%s\n", colorGreen, formatMinor(string(c.Totals.Total), c.Currency), colorReset)
}

// =============================================================================
// WISHLIST COMMANDS
// =============================================================================

func runWishlist(cmd string, args []string) {
	var g globalFlags
	fs := newFlagSet("wishlist "+cmd, &g)
	var (
		productID   int
		variationID int
		guest       string
	)
	fs.IntVar(&productID, "product", 0, "product ID (add, remove)")
	fs.IntVar(&variationID, "variation", 0, "variation ID (add, remove)")
	fs.StringVar(&guest, "guest", "", "comma separated product IDs of a guest list (sync)")
	fs.Parse(args)

	client := newClient(&g)
	store := storefront.NewWishlistStore(client, swr.Options{})
	ctx, cancel := commandContext()
	defer cancel()

	p := reconcile.Product{ProductID: productID, VariationID: variationID}
	var (
		w   *wishlist.Wishlist
		err error
	)
	switch cmd {
	case "get":
		w, err = store.Get(ctx)
	case "add":
		if productID <= 0 {
			fatal("-product is required")
		}
		w, err = store.Add(ctx, p)
	case "remove":
		if productID <= 0 {
			fatal("-product is required")
		}
		w, err = store.Remove(ctx, p)
	case "sync":
		products, perr := parseProducts(guest)
		if perr != nil {
			fatal("Invalid -guest: %v", perr)
		}
		w, err = store.Sync(ctx, products)
	default:
		fatal("Unknown wishlist command: %s", cmd)
	}
	if err != nil {
		fatalAPI("wishlist "+cmd, err)
	}

	if g.quiet {
		if w != nil {
			fmt.Println(len(w.Products))
		}
		return
	}
	printSuccess("wishlist %s", cmd)
	if w == nil {
		return
	}
	fmt.Printf("  Wishlist: %s (%d products)\n", w.Title, len(w.Products))
	for _, wp := range w.Products {
		fmt.Printf("    - %d", wp.ProductID)
		if wp.VariationID > 0 {
			fmt.Printf(" / %d", wp.VariationID)
		}
		fmt.Println()
	}
}

func parseProducts(s string) ([]reconcile.Product, error) {
	var out []reconcile.Product
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, reconcile.Product{ProductID: id})
	}
	return out, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func formatMinor(raw string, cur cocart.Currency) string {
	d := model.FromMinorUnits(raw, cur.CurrencyMinorUnit)
	return strings.TrimSpace(cur.CurrencyPrefix + model.FormatAmount(d, cur.CurrencyMinorUnit) + cur.CurrencySuffix + " " + cur.CurrencyCode)
}

func printSuccess(format string, args ...any) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
}

// fatalAPI prints an API failure with its envelope code when there is one.
func fatalAPI(op string, err error) {
	if apiErr, ok := model.AsAPIError(err); ok {
		fatal("%s failed: %s (%s)", op, apiErr.Code, apiErr.Message)
	}
	fatal("%s failed: %v", op, err)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
