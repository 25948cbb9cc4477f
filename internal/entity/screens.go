package entity

import (
	"github.com/stockdesk/stockdesk/internal/importer"
	"github.com/stockdesk/stockdesk/internal/listing"
)

// Status values.
var (
	UserStatuses      = []string{"ACTIVE", "INACTIVE"}
	UserRoles         = []string{"ADMIN", "OPERATOR", "DRIVER"}
	VehicleStatuses   = []string{"AVAILABLE", "IN_TRANSIT", "MAINTENANCE"}
	VehicleTypes      = []string{"VAN", "TRUCK", "FORKLIFT"}
	TransferStatuses  = []string{"PENDING", "IN_TRANSIT", "COMPLETED", "CANCELLED"}
	InventoryStatuses = []string{"IN_STOCK", "LOW_STOCK", "OUT_OF_STOCK"}
	ProductStatuses   = []string{"ACTIVE", "DISCONTINUED"}
)

func searchKey() FilterKey {
	return FilterKey{Name: listing.FilterSearch, Label: "Search"}
}

func warehouseKey() FilterKey {
	return FilterKey{Name: listing.FilterWarehouse, Label: "Warehouse"}
}

func statusKey(values []string) FilterKey {
	return FilterKey{Name: listing.FilterStatus, Label: "Status", Values: values}
}

// UserDescriptor describes the users screen.
func UserDescriptor() Descriptor[User] {
	return Descriptor[User]{
		Meta: Meta{
			Name:         Users,
			Title:        "Users",
			DefaultSort:  "createdAt",
			SortFields:   []string{"createdAt", "username", "fullName", "role"},
			SearchFields: []string{"username", "email", "fullName"},
			Filters: []FilterKey{
				statusKey(UserStatuses),
				{Name: "role", Label: "Role", Values: UserRoles},
				warehouseKey(),
				searchKey(),
			},
			Columns: []Column{
				{Title: "ID", Width: 10}, {Title: "Username", Width: 16}, {Title: "Name", Width: 22},
				{Title: "Email", Width: 26}, {Title: "Role", Width: 10}, {Title: "Status", Width: 10},
			},
			Form: []FormField{
				{Name: "username", Label: "Username", Required: true},
				{Name: "email", Label: "Email", Required: true, Kind: KindEmail},
				{Name: "fullName", Label: "Full name", Required: true},
				{Name: "role", Label: "Role", Required: true, Kind: KindEnum, Options: UserRoles},
				{Name: "status", Label: "Status", Kind: KindEnum, Options: UserStatuses},
				{Name: "warehouseId", Label: "Warehouse"},
			},
			Import: importer.Spec{
				Fields: []importer.Field{
					{Name: "username", Label: "Username", Required: true},
					{Name: "email", Label: "Email", Required: true},
					{Name: "fullName", Label: "Full Name", Required: true},
					{Name: "role", Label: "Role"},
				},
				Extensions: []string{".csv", ".xlsx", ".xls"},
			},
		},
		ID:    func(u User) string { return u.ID },
		Label: func(u User) string { return u.Username },
		Row: func(u User) []string {
			return []string{u.ID, u.Username, u.FullName, u.Email, u.Role, u.Status}
		},
	}
}

// VehicleDescriptor describes the vehicles screen.
func VehicleDescriptor() Descriptor[Vehicle] {
	return Descriptor[Vehicle]{
		Meta: Meta{
			Name:         Vehicles,
			Title:        "Vehicles",
			DefaultSort:  "createdAt",
			SortFields:   []string{"createdAt", "plate", "model", "capacityKg"},
			SearchFields: []string{"plate", "model"},
			Filters: []FilterKey{
				statusKey(VehicleStatuses),
				{Name: "type", Label: "Type", Values: VehicleTypes},
				warehouseKey(),
				searchKey(),
			},
			Columns: []Column{
				{Title: "ID", Width: 10}, {Title: "Plate", Width: 10}, {Title: "Model", Width: 18},
				{Title: "Type", Width: 10}, {Title: "Capacity kg", Width: 11}, {Title: "Status", Width: 12},
				{Title: "Warehouse", Width: 10},
			},
			Form: []FormField{
				{Name: "plate", Label: "Plate", Required: true},
				{Name: "model", Label: "Model", Required: true},
				{Name: "type", Label: "Type", Required: true, Kind: KindEnum, Options: VehicleTypes},
				{Name: "capacityKg", Label: "Capacity (kg)", Required: true, Kind: KindInt},
				{Name: "status", Label: "Status", Kind: KindEnum, Options: VehicleStatuses},
				{Name: "warehouseId", Label: "Warehouse"},
			},
			Import: importer.Spec{
				Fields: []importer.Field{
					{Name: "plate", Label: "Plate", Required: true},
					{Name: "model", Label: "Model", Required: true},
					{Name: "type", Label: "Type", Required: true},
					{Name: "capacityKg", Label: "Capacity", Required: true},
					{Name: "warehouseId", Label: "Warehouse"},
				},
				Extensions: []string{".csv", ".xlsx"},
			},
		},
		ID:    func(v Vehicle) string { return v.ID },
		Label: func(v Vehicle) string { return v.Plate },
		Row: func(v Vehicle) []string {
			return []string{v.ID, v.Plate, v.Model, v.Type, itoa(v.CapacityKg), v.Status, v.WarehouseID}
		},
	}
}

// TransferDescriptor describes the transfers screen. Its filters wait for
// an explicit apply.
func TransferDescriptor() Descriptor[Transfer] {
	return Descriptor[Transfer]{
		Meta: Meta{
			Name:         Transfers,
			Title:        "Transfers",
			DefaultSort:  "createdAt",
			SortFields:   []string{"createdAt", "scheduledAt", "code", "value"},
			SearchFields: []string{"code"},
			Filters: []FilterKey{
				statusKey(TransferStatuses),
				warehouseKey(),
				{Name: listing.FilterStartDate, Label: "From", Date: true},
				{Name: listing.FilterEndDate, Label: "To", Date: true},
				searchKey(),
			},
			Columns: []Column{
				{Title: "ID", Width: 10}, {Title: "Code", Width: 12}, {Title: "From", Width: 10},
				{Title: "To", Width: 10}, {Title: "Vehicle", Width: 10}, {Title: "Status", Width: 12},
				{Title: "Value", Width: 12}, {Title: "Scheduled", Width: 10},
			},
			Form: []FormField{
				{Name: "code", Label: "Code", Required: true},
				{Name: "originWarehouseId", Label: "Origin warehouse", Required: true},
				{Name: "destinationWarehouseId", Label: "Destination warehouse", Required: true},
				{Name: "vehicleId", Label: "Vehicle"},
				{Name: "value", Label: "Value", Kind: KindDecimal},
				{Name: "scheduledAt", Label: "Scheduled (YYYY-MM-DD)", Kind: KindDate},
				{Name: "status", Label: "Status", Kind: KindEnum, Options: TransferStatuses},
			},
			Import: importer.Spec{
				Fields: []importer.Field{
					{Name: "code", Label: "Code", Required: true},
					{Name: "originWarehouseId", Label: "Origin", Required: true},
					{Name: "destinationWarehouseId", Label: "Destination", Required: true},
					{Name: "value", Label: "Value"},
				},
				Extensions: []string{".csv", ".xlsx", ".xls"},
			},
			ApplyGate: true,
		},
		ID:    func(t Transfer) string { return t.ID },
		Label: func(t Transfer) string { return t.Code },
		Row: func(t Transfer) []string {
			return []string{
				t.ID, t.Code, t.OriginWarehouseID, t.DestinationWarehouseID, t.VehicleID, t.Status,
				t.Value.StringFixed(2), t.ScheduledAt,
			}
		},
	}
}

// InventoryDescriptor describes the inventory screen.
func InventoryDescriptor() Descriptor[InventoryItem] {
	return Descriptor[InventoryItem]{
		Meta: Meta{
			Name:         Inventory,
			Title:        "Inventory",
			DefaultSort:  "createdAt",
			SortFields:   []string{"createdAt", "serialNumber", "quantity"},
			SearchFields: []string{"serialNumber", "productName"},
			Filters: []FilterKey{
				statusKey(InventoryStatuses),
				warehouseKey(),
				{Name: "productId", Label: "Product"},
				searchKey(),
			},
			Columns: []Column{
				{Title: "ID", Width: 10}, {Title: "Serial", Width: 14}, {Title: "Product", Width: 20},
				{Title: "Warehouse", Width: 10}, {Title: "Qty", Width: 6}, {Title: "Min", Width: 6},
				{Title: "Status", Width: 13}, {Title: "Created", Width: 10},
			},
			Form: []FormField{
				{Name: "serialNumber", Label: "Serial number", Required: true},
				{Name: "productId", Label: "Product", Required: true},
				{Name: "warehouseId", Label: "Warehouse", Required: true},
				{Name: "quantity", Label: "Quantity", Required: true, Kind: KindInt},
				{Name: "minQuantity", Label: "Minimum quantity", Kind: KindInt},
			},
			Import: importer.Spec{
				Fields: []importer.Field{
					{Name: "serialNumber", Label: "Serial Number", Required: true},
					{Name: "productId", Label: "Product", Required: true},
					{Name: "quantity", Label: "Qty", Required: true},
					{Name: "warehouseId", Label: "Warehouse"},
				},
				Extensions: []string{".csv", ".xlsx", ".xls"},
			},
		},
		ID:    func(i InventoryItem) string { return i.ID },
		Label: func(i InventoryItem) string { return i.SerialNumber },
		Row: func(i InventoryItem) []string {
			product := i.ProductName
			if product == "" {
				product = i.ProductID
			}
			return []string{
				i.ID, i.SerialNumber, product, i.WarehouseID, itoa(i.Quantity), itoa(i.MinQuantity),
				i.Status, date(i.CreatedAt),
			}
		},
	}
}

// ProductDescriptor describes the products screen.
func ProductDescriptor() Descriptor[Product] {
	return Descriptor[Product]{
		Meta: Meta{
			Name:         Products,
			Title:        "Products",
			DefaultSort:  "createdAt",
			SortFields:   []string{"createdAt", "name", "sku", "price"},
			SearchFields: []string{"name", "sku", "category"},
			Filters: []FilterKey{
				statusKey(ProductStatuses),
				{Name: "category", Label: "Category"},
				searchKey(),
			},
			Columns: []Column{
				{Title: "ID", Width: 10}, {Title: "SKU", Width: 12}, {Title: "Name", Width: 24},
				{Title: "Category", Width: 14}, {Title: "Price", Width: 10}, {Title: "Unit", Width: 6},
				{Title: "Status", Width: 12},
			},
			Form: []FormField{
				{Name: "sku", Label: "SKU", Required: true},
				{Name: "name", Label: "Name", Required: true},
				{Name: "category", Label: "Category"},
				{Name: "price", Label: "Price", Required: true, Kind: KindDecimal},
				{Name: "unit", Label: "Unit"},
				{Name: "status", Label: "Status", Kind: KindEnum, Options: ProductStatuses},
			},
			Import: importer.Spec{
				Fields: []importer.Field{
					{Name: "sku", Label: "SKU", Required: true},
					{Name: "name", Label: "Name", Required: true},
					{Name: "price", Label: "Price", Required: true},
					{Name: "category", Label: "Category"},
				},
				Extensions: []string{".csv", ".xlsx"},
			},
		},
		ID:    func(p Product) string { return p.ID },
		Label: func(p Product) string { return p.Name },
		Row: func(p Product) []string {
			return []string{p.ID, p.SKU, p.Name, p.Category, p.Price.StringFixed(2), p.Unit, p.Status}
		},
	}
}
