package woocommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// TI Wishlist lives under the REST v3 namespace and uses the same consumer key auth.
const wishlistPath = restAPIPath + "/wishlist"

// WishlistsByUser returns the wishlists owned by a WordPress user.
func (c *Client) WishlistsByUser(ctx context.Context, userID int) ([]Wishlist, error) {
	var lists []Wishlist
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodGet,
		path:      wishlistPath + "/get_by_user/" + strconv.Itoa(userID),
		basicAuth: true,
		scope:     "wishlist",
	}, &lists)
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// WishlistProducts lists the products of a wishlist.
func (c *Client) WishlistProducts(ctx context.Context, shareKey string) ([]WishlistProduct, error) {
	var products []WishlistProduct
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodGet,
		path:      wishlistPath + "/" + url.PathEscape(shareKey) + "/get_products",
		query:     url.Values{"count": {"100"}},
		basicAuth: true,
		scope:     "wishlist",
	}, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// AddWishlistProduct adds a product to a wishlist.
func (c *Client) AddWishlistProduct(ctx context.Context, shareKey string, productID, variationID int) ([]WishlistProduct, error) {
	body := map[string]int{"product_id": productID}
	if variationID > 0 {
		body["variation_id"] = variationID
	}

	var raw json.RawMessage
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodPost,
		path:      wishlistPath + "/" + url.PathEscape(shareKey) + "/add_product",
		body:      body,
		basicAuth: true,
		scope:     "wishlist",
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeWishlistProducts(raw), nil
}

// RemoveWishlistProduct removes a wishlist item by its item id.
// TI Wishlist exposes removal as a GET.
func (c *Client) RemoveWishlistProduct(ctx context.Context, itemID int) error {
	return c.doJSON(ctx, wpRequest{
		method:    http.MethodGet,
		path:      wishlistPath + "/remove_product/" + strconv.Itoa(itemID),
		basicAuth: true,
		scope:     "wishlist",
	}, nil)
}

// decodeWishlistProducts accepts either a product array or a single product object.
func decodeWishlistProducts(raw json.RawMessage) []WishlistProduct {
	var list []WishlistProduct
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one WishlistProduct
	if err := json.Unmarshal(raw, &one); err == nil && one.ProductID > 0 {
		return []WishlistProduct{one}
	}
	return nil
}
