// Package commerce defines the commerce/fulfillment provider contract
// (§6) and its adapters.
package commerce

import "context"

type OrderItem struct {
	ProductID      string
	ProductName    string
	Quantity       int
	UnitPriceCents int64
	TotalCents     int64
}

type OrderRequest struct {
	DeliveryID      string
	CustomerID      string
	Items           []OrderItem
	Currency        string
	ShippingAddress map[string]any
	Metadata        map[string]string
}

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

type OrderResult struct {
	Success      bool
	ExternalRef  string
	Status       OrderStatus
	ErrorCode    string
	ErrorMessage string
}

type Provider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	GetOrderStatus(ctx context.Context, externalRef string) (*OrderResult, error)
	CancelOrder(ctx context.Context, externalRef string) error
}
