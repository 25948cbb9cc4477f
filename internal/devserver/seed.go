package devserver

import (
	"fmt"
	"time"

	"github.com/stockdesk/stockdesk/internal/entity"
)

// Seed fills s with a small, deterministic data set spread over two
// warehouses.
func Seed(s *Store) {
	base := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	warehouses := []string{"W1", "W2"}
	at := func(i int) string { return base.AddDate(0, 0, i).Format(time.RFC3339) }

	for i := range 6 {
		mustCreate(s, entity.Users, Record{
			"username":    fmt.Sprintf("user%d", i+1),
			"email":       fmt.Sprintf("user%d@example.com", i+1),
			"fullName":    fmt.Sprintf("Warehouse User %d", i+1),
			"role":        entity.UserRoles[i%len(entity.UserRoles)],
			"status":      entity.UserStatuses[i%len(entity.UserStatuses)],
			"warehouseId": warehouses[i%len(warehouses)],
			"createdAt":   at(i),
		})
	}

	for i := range 4 {
		mustCreate(s, entity.Vehicles, Record{
			"plate":       fmt.Sprintf("SD-%03d", i+1),
			"model":       []string{"Sprinter", "Actros", "Toyota 8FB", "Transit"}[i],
			"type":        entity.VehicleTypes[i%len(entity.VehicleTypes)],
			"capacityKg":  1000 * (i + 1),
			"status":      entity.VehicleStatuses[i%len(entity.VehicleStatuses)],
			"warehouseId": warehouses[i%len(warehouses)],
			"createdAt":   at(i),
		})
	}

	for i := range 12 {
		mustCreate(s, entity.Products, Record{
			"sku":       fmt.Sprintf("SKU-%04d", i+1),
			"name":      fmt.Sprintf("Product %d", i+1),
			"category":  []string{"tools", "fasteners", "paint"}[i%3],
			"price":     fmt.Sprintf("%d.%02d", 5+i*3, (i*17)%100),
			"unit":      "ea",
			"status":    entity.ProductStatuses[i%len(entity.ProductStatuses)],
			"createdAt": at(i),
		})
	}

	for i := range 8 {
		qty := (i * 7) % 30
		status := "IN_STOCK"
		switch {
		case qty == 0:
			status = "OUT_OF_STOCK"
		case qty < 10:
			status = "LOW_STOCK"
		}
		mustCreate(s, entity.Inventory, Record{
			"serialNumber": fmt.Sprintf("SN-%05d", i+1),
			"productId":    fmt.Sprintf("SKU-%04d", i+1),
			"productName":  fmt.Sprintf("Product %d", i+1),
			"warehouseId":  warehouses[i%len(warehouses)],
			"quantity":     qty,
			"minQuantity":  10,
			"status":       status,
			"createdAt":    at(i),
		})
	}

	for i := range 5 {
		mustCreate(s, entity.Transfers, Record{
			"code":                   fmt.Sprintf("TR-%03d", i+1),
			"originWarehouseId":      warehouses[i%2],
			"destinationWarehouseId": warehouses[(i+1)%2],
			"status":                 entity.TransferStatuses[i%len(entity.TransferStatuses)],
			"value":                  fmt.Sprintf("%d.00", 250*(i+1)),
			"scheduledAt":            base.AddDate(0, 0, 7*i).Format(entity.DateLayout),
			"createdAt":              at(i),
		})
	}
}

func mustCreate(s *Store, name string, r Record) {
	if _, err := s.Create(name, r); err != nil {
		panic(fmt.Sprintf("seeding %s: %v", name, err))
	}
}
