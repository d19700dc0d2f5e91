package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role tags a principal as customer or cafe admin.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleCafeAdmin Role = "cafeadmin"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderUnpaid    OrderStatus = "unpaid"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	// OrderRedeemed marks synthetic orders created by point redemption,
	// bypassing cart and payment.
	OrderRedeemed OrderStatus = "redeemed"
)

// PaymentStatus represents the state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
)

// RedemptionStatus represents the fulfilment state of a redemption.
type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionDelivered RedemptionStatus = "delivered"
)

// Principal identifies the authenticated caller of an operation.
type Principal struct {
	UserID   uuid.UUID
	Username string
	Role     Role
}

// IsAdmin reports whether the principal may use the cafeadmin namespace.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleCafeAdmin
}

// User is an account row. Registration is out of scope; rows are seeded
// or provisioned by an admin.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Category groups food items on the menu.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FoodItem is a menu entry. Price is the list price; active special
// offers discount it at read and at order snapshot time.
type FoodItem struct {
	ID          uuid.UUID       `json:"id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SpecialOffer is a time-bound percentage discount on one food item.
type SpecialOffer struct {
	ID                 uuid.UUID       `json:"id"`
	FoodItemID         uuid.UUID       `json:"fooditem_id"`
	Name               string          `json:"name"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	Description        string          `json:"description,omitempty"`
}

// Active reports whether the offer applies at the given instant.
func (o SpecialOffer) Active(now time.Time) bool {
	return !now.Before(o.StartDate) && !now.After(o.EndDate)
}

// DiningTable is a physical seating reference attached to in-house orders.
type DiningTable struct {
	ID          uuid.UUID `json:"id"`
	TableNumber int       `json:"table_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CartItem is one line of a customer's cart. UnitPrice is the current
// discounted price, recomputed at read time; it freezes only when an
// order is placed.
type CartItem struct {
	ID         uuid.UUID       `json:"id"`
	CartID     uuid.UUID       `json:"cart_id"`
	FoodItemID uuid.UUID       `json:"fooditem_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the per-customer mutable item collection.
type Cart struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderItem is a frozen snapshot line of an order. UnitPrice is copied at
// order time and immune to later catalog changes.
type OrderItem struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    uuid.UUID       `json:"order_id"`
	FoodItemID uuid.UUID       `json:"fooditem_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// Order is an immutable snapshot of a cart, plus lifecycle status.
type Order struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	DiningTableID *uuid.UUID      `json:"dining_table_id,omitempty"`
	Status        OrderStatus     `json:"status"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Items         []OrderItem     `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Payment tracks a single payment attempt, 1:1 with its order.
type Payment struct {
	ID                 uuid.UUID       `json:"id"`
	OrderID            uuid.UUID       `json:"order_id"`
	UserID             uuid.UUID       `json:"user_id"`
	Amount             decimal.Decimal `json:"amount"`
	PhoneNumber        string          `json:"phone_number"`
	CheckoutRequestID  string          `json:"checkout_request_id"`
	GatewayReceipt     string          `json:"gateway_receipt,omitempty"`
	Status             PaymentStatus   `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LoyaltyAccount holds a customer's point balance, 1:1 with the user.
type LoyaltyAccount struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Points int64     `json:"points"`
}

// LoyaltyTransaction records one accrual on the ledger.
type LoyaltyTransaction struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	Amount       decimal.Decimal `json:"amount"`
	PointsEarned int64           `json:"points_earned"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RedemptionOption maps a point cost to a specific food item.
type RedemptionOption struct {
	ID             uuid.UUID `json:"id"`
	FoodItemID     uuid.UUID `json:"fooditem_id"`
	FoodItemName   string    `json:"fooditem_name,omitempty"`
	PointsRequired int64     `json:"points_required"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

// RedemptionTransaction records one point redemption and its fulfilment
// state.
type RedemptionTransaction struct {
	ID             uuid.UUID        `json:"id"`
	UserID         uuid.UUID        `json:"user_id"`
	OptionID       *uuid.UUID       `json:"option_id,omitempty"`
	OrderID        uuid.UUID        `json:"order_id"`
	PointsRedeemed int64            `json:"points_redeemed"`
	Status         RedemptionStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Review is a customer's one-per-order rating, writable only same-day.
type Review struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is a per-recipient event record.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// PointsForAmount converts a paid amount into loyalty points: one point
// per 100 currency units, fractional remainder dropped.
func PointsForAmount(amount decimal.Decimal) int64 {
	return amount.Div(decimal.NewFromInt(100)).Floor().IntPart()
}
