package woocommerce

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	var order Order
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodGet,
		path:      restAPIPath + "/orders/" + strconv.Itoa(orderID),
		basicAuth: true,
		scope:     "order",
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders lists orders matching q, newest first.
func (c *Client) ListOrders(ctx context.Context, q OrderQuery) ([]Order, error) {
	query := url.Values{}
	if len(q.Status) > 0 {
		query.Set("status", strings.Join(q.Status, ","))
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	query.Set("per_page", strconv.Itoa(perPage))
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	query.Set("orderby", "date")
	query.Set("order", "desc")

	var orders []Order
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodGet,
		path:      restAPIPath + "/orders",
		query:     query,
		basicAuth: true,
		scope:     "order",
	}, &orders)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrder applies a partial update and returns the updated order.
func (c *Client) UpdateOrder(ctx context.Context, orderID int, update OrderUpdate) (*Order, error) {
	var order Order
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodPut,
		path:      restAPIPath + "/orders/" + strconv.Itoa(orderID),
		body:      update,
		basicAuth: true,
		scope:     "order",
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateRefund records a refund against an order.
func (c *Client) CreateRefund(ctx context.Context, orderID int, req RefundRequest) (*Refund, error) {
	var refund Refund
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodPost,
		path:      restAPIPath + "/orders/" + strconv.Itoa(orderID) + "/refunds",
		body:      req,
		basicAuth: true,
		scope:     "refund",
	}, &refund)
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// AddOrderNote adds a private (or customer-visible) note to an order.
func (c *Client) AddOrderNote(ctx context.Context, orderID int, note string, customerNote bool) (*OrderNote, error) {
	var created OrderNote
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodPost,
		path:      restAPIPath + "/orders/" + strconv.Itoa(orderID) + "/notes",
		body:      OrderNote{Note: note, CustomerNote: customerNote},
		basicAuth: true,
		scope:     "order",
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListShippingZones lists all zones, including zone 0.
func (c *Client) ListShippingZones(ctx context.Context) ([]ShippingZone, error) {
	var zones []ShippingZone
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodGet,
		path:      restAPIPath + "/shipping/zones",
		basicAuth: true,
		scope:     "shipping",
	}, &zones)
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// ZoneLocations lists the location rules of a zone.
func (c *Client) ZoneLocations(ctx context.Context, zoneID int) ([]ZoneLocation, error) {
	var locations []ZoneLocation
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodGet,
		path:      restAPIPath + "/shipping/zones/" + strconv.Itoa(zoneID) + "/locations",
		basicAuth: true,
		scope:     "shipping",
	}, &locations)
	if err != nil {
		return nil, err
	}
	return locations, nil
}

// ZoneMethods lists the shipping method instances of a zone.
func (c *Client) ZoneMethods(ctx context.Context, zoneID int) ([]ShippingMethod, error) {
	var methods []ShippingMethod
	err := c.doJSON(ctx, wpRequest{
		method:    http.MethodGet,
		path:      restAPIPath + "/shipping/zones/" + strconv.Itoa(zoneID) + "/methods",
		basicAuth: true,
		scope:     "shipping",
	}, &methods)
	if err != nil {
		return nil, err
	}
	return methods, nil
}
