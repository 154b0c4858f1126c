package domain

import "time"

// KitchenStatus is the operating status of a kitchen.
type KitchenStatus string

const (
	KitchenActive      KitchenStatus = "active"
	KitchenInactive    KitchenStatus = "inactive"
	KitchenMaintenance KitchenStatus = "maintenance"
)

// Valid reports whether s is a known kitchen status.
func (s KitchenStatus) Valid() bool {
	switch s {
	case KitchenActive, KitchenInactive, KitchenMaintenance:
		return true
	}
	return false
}

// Kitchen is a physical kitchen site.
type Kitchen struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Location  string        `json:"location"`
	Status    KitchenStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Category groups inventory items.
type Category string

const (
	CategoryVegetable Category = "vegetable"
	CategoryMeat      Category = "meat"
	CategoryGrain     Category = "grain"
	CategoryDairy     Category = "dairy"
	CategorySpice     Category = "spice"
	CategoryOther     Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryVegetable, CategoryMeat, CategoryGrain, CategoryDairy, CategorySpice, CategoryOther:
		return true
	}
	return false
}

// Unit is the measurement unit of an inventory quantity.
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitLitre      Unit = "l"
	UnitMillilitre Unit = "ml"
	UnitPiece      Unit = "unit"
	UnitPack       Unit = "pack"
)

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	switch u {
	case UnitKilogram, UnitGram, UnitLitre, UnitMillilitre, UnitPiece, UnitPack:
		return true
	}
	return false
}

// InventoryItem is a stocked ingredient in one kitchen.
type InventoryItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	Quantity     float64   `json:"quantity"`
	Unit         Unit      `json:"unit"`
	Threshold    float64   `json:"threshold"`
	PricePerUnit float64   `json:"price_per_unit"`
	KitchenID    string    `json:"kitchen_id"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MealType is the service a preparation plan feeds.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSpecial   MealType = "special"
)

// Valid reports whether m is a known meal type.
func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSpecial:
		return true
	}
	return false
}

// PlanStatus tracks a preparation plan through the day.
type PlanStatus string

const (
	PlanPlanned    PlanStatus = "planned"
	PlanInProgress PlanStatus = "in-progress"
	PlanCompleted  PlanStatus = "completed"
)

// PreparationPlan is the expected and actual output of one meal service.
type PreparationPlan struct {
	ID              string     `json:"id"`
	KitchenID       string     `json:"kitchen_id"`
	Date            string     `json:"date"` // YYYY-MM-DD
	MealType        MealType   `json:"meal_type"`
	EstimatedPlates int        `json:"estimated_plates"`
	ActualPlates    *int       `json:"actual_plates,omitempty"`
	Wastage         *float64   `json:"wastage,omitempty"`
	WastageReason   string     `json:"wastage_reason,omitempty"`
	Status          PlanStatus `json:"status"`
	RecipeIDs       []string   `json:"recipes"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Role is a staff member's permission level.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleChef       Role = "chef"
	RoleCutter     Role = "cutter"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleChef, RoleCutter, RoleSupervisor:
		return true
	}
	return false
}

// Profile is a staff member's account as the rest of the system sees it.
// The password hash never leaves the auth package.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	KitchenID string    `json:"kitchen_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
