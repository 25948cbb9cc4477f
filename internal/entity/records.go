// Package entity describes the records the console manages and how each
// screen lists, filters, edits and imports them.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a console or warehouse user.
type User struct {
	ID          string    `json:"id"          yaml:"id"`
	Username    string    `json:"username"    yaml:"username"`
	Email       string    `json:"email"       yaml:"email"`
	FullName    string    `json:"fullName"    yaml:"fullName"`
	Role        string    `json:"role"        yaml:"role"`
	Status      string    `json:"status"      yaml:"status"`
	WarehouseID string    `json:"warehouseId,omitempty" yaml:"warehouseId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"    yaml:"createdAt,omitempty"`
}

// Vehicle is a transport vehicle assigned to a warehouse.
type Vehicle struct {
	ID          string    `json:"id"          yaml:"id"`
	Plate       string    `json:"plate"       yaml:"plate"`
	Model       string    `json:"model"       yaml:"model"`
	Type        string    `json:"type"        yaml:"type"`
	CapacityKg  int       `json:"capacityKg"  yaml:"capacityKg"`
	Status      string    `json:"status"      yaml:"status"`
	WarehouseID string    `json:"warehouseId,omitempty" yaml:"warehouseId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"    yaml:"createdAt,omitempty"`
}

// Transfer moves stock between two warehouses.
type Transfer struct {
	ID                     string          `json:"id"                     yaml:"id"`
	Code                   string          `json:"code"                   yaml:"code"`
	OriginWarehouseID      string          `json:"originWarehouseId"      yaml:"originWarehouseId"`
	DestinationWarehouseID string          `json:"destinationWarehouseId" yaml:"destinationWarehouseId"`
	VehicleID              string          `json:"vehicleId,omitempty"    yaml:"vehicleId,omitempty"`
	Status                 string          `json:"status"                 yaml:"status"`
	Value                  decimal.Decimal `json:"value"                  yaml:"value"`
	ScheduledAt            string          `json:"scheduledAt,omitempty"  yaml:"scheduledAt,omitempty"`
	CreatedAt              time.Time       `json:"createdAt,omitzero"     yaml:"createdAt,omitempty"`
}

// InventoryItem is a stock position of one product in one warehouse.
type InventoryItem struct {
	ID           string    `json:"id"           yaml:"id"`
	SerialNumber string    `json:"serialNumber" yaml:"serialNumber"`
	ProductID    string    `json:"productId"    yaml:"productId"`
	ProductName  string    `json:"productName,omitempty" yaml:"productName,omitempty"`
	WarehouseID  string    `json:"warehouseId"  yaml:"warehouseId"`
	Quantity     int       `json:"quantity"     yaml:"quantity"`
	MinQuantity  int       `json:"minQuantity"  yaml:"minQuantity"`
	Status       string    `json:"status"       yaml:"status"`
	CreatedAt    time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
}

// Product is a catalog entry.
type Product struct {
	ID        string          `json:"id"       yaml:"id"`
	SKU       string          `json:"sku"      yaml:"sku"`
	Name      string          `json:"name"     yaml:"name"`
	Category  string          `json:"category" yaml:"category"`
	Price     decimal.Decimal `json:"price"    yaml:"price"`
	Unit      string          `json:"unit"     yaml:"unit"`
	Status    string          `json:"status"   yaml:"status"`
	CreatedAt time.Time       `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
}
