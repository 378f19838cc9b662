package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindActivityCompletion TransactionKind = "activity_completion"
	KindAttendance         TransactionKind = "attendance"
	KindTripParticipation  TransactionKind = "trip_participation"
	KindTeacherAdjustment  TransactionKind = "teacher_adjustment"
	KindOrderReserve       TransactionKind = "order_reserve"
	KindOrderRelease       TransactionKind = "order_release"
	// KindOrderCapture and KindOrderRefund are accepted by the schema; captures are derived
	// from the order status, so the engine never writes them.
	KindOrderCapture TransactionKind = "order_capture"
	KindOrderRefund  TransactionKind = "order_refund"
)

// IsEarning reports whether the kind can be posted directly by staff.
func (k TransactionKind) IsEarning() bool {
	switch k {
	case KindActivityCompletion, KindAttendance, KindTripParticipation, KindTeacherAdjustment:
		return true
	}
	return false
}

func (k TransactionKind) Valid() bool {
	switch k {
	case KindOrderReserve, KindOrderRelease, KindOrderCapture, KindOrderRefund:
		return true
	}
	return k.IsEarning()
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID          uuid.UUID       `db:"id"`
	UserID      uuid.UUID       `db:"user_id"`
	Amount      int64           `db:"amount"`
	Kind        TransactionKind `db:"kind"`
	ReferenceID *uuid.UUID      `db:"reference_id"`
	Notes       string          `db:"notes"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Balance is derived from the ledger, it is never stored.
type Balance struct {
	UserID        uuid.UUID
	Available     int64
	Reserved      int64
	Used          int64
	TotalEarned   int64
	TotalDeducted int64
}

type TransactionPage struct {
	Transactions []Transaction
	NextCursor   string
}

type CatalogItem struct {
	ID               uuid.UUID       `db:"id"`
	Name             string          `db:"name"`
	Description      string          `db:"description"`
	PricePoints      int64           `db:"price_points"`
	PriceCash        decimal.Decimal `db:"price_cash"`
	StockQuantity    int             `db:"stock_quantity"`
	IsActive         bool            `db:"is_active"`
	RequiresApproval bool            `db:"requires_approval"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// Price and quantity limits keep order amounts inside the stored numeric precision.
const (
	MaxOrderQuantity = 1000
	MaxPricePoints   = 1_000_000
)

var MaxPriceCash = decimal.NewFromInt(1_000_000)

type PaymentMethod string

const (
	PaymentPoints PaymentMethod = "points"
	PaymentCash   PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentPoints || m == PaymentCash
}

// UnitPrice returns the item price for the payment method.
func (i CatalogItem) UnitPrice(method PaymentMethod) decimal.Decimal {
	if method == PaymentPoints {
		return decimal.NewFromInt(i.PricePoints)
	}
	return i.PriceCash
}

type Order struct {
	ID             uuid.UUID       `db:"id"`
	Number         string          `db:"number"`
	UserID         uuid.UUID       `db:"user_id"`
	ItemID         uuid.UUID       `db:"item_id"`
	Quantity       int             `db:"quantity"`
	PaymentMethod  PaymentMethod   `db:"payment_method"`
	Amount         decimal.Decimal `db:"amount"`
	Status         OrderStatus     `db:"status"`
	IdempotencyKey *string         `db:"idempotency_key"`
	Notes          string          `db:"notes"`
	AdminNotes     string          `db:"admin_notes"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// PointsAmount is the ledger amount held by a points-funded order.
func (o Order) PointsAmount() int64 {
	if o.PaymentMethod != PaymentPoints {
		return 0
	}
	return o.Amount.IntPart()
}

// TransactionCursor marks the last transaction of a page, pages are ordered newest first.
type TransactionCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// OrderRequest is what a student asks for when placing an order.
type OrderRequest struct {
	UserID         uuid.UUID
	ItemID         uuid.UUID
	Quantity       int
	PaymentMethod  PaymentMethod
	Notes          string
	IdempotencyKey string
}

func (r OrderRequest) Validate() error {
	if r.Quantity < 1 {
		return Validationf("quantity must be at least 1, got %d", r.Quantity)
	}
	if r.Quantity > MaxOrderQuantity {
		return Validationf("quantity must be at most %d, got %d", MaxOrderQuantity, r.Quantity)
	}
	if !r.PaymentMethod.Valid() {
		return Validationf("payment method must be points or cash, got %q", r.PaymentMethod)
	}
	return nil
}

// Matches reports whether an order stored under the same idempotency key was created from
// an equivalent request.
func (r OrderRequest) Matches(o *Order) bool {
	return o.UserID == r.UserID &&
		o.ItemID == r.ItemID &&
		o.Quantity == r.Quantity &&
		o.PaymentMethod == r.PaymentMethod
}
