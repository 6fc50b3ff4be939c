// File: internal/payment/model.go
package payment

import (
	"fmt"
	"strings"
	"time"

	"launchpad_backend/internal/common"

	"github.com/google/uuid"
)

// PlanKind is what a plan buys.
type PlanKind string

const (
	KindFeatured PlanKind = "featured"
	KindPremium  PlanKind = "premium"
)

// Plan is a purchasable promotion.
type Plan struct {
	Code        string   `json:"code"`
	Kind        PlanKind `json:"kind"`
	Days        int      `json:"days"`
	AmountCents int64    `json:"amount_cents"`
	Label       string   `json:"label"`
}

var plans = map[string]Plan{
	"featured_7":  {Code: "featured_7", Kind: KindFeatured, Days: 7, AmountCents: 1900, Label: "Featured for 7 days"},
	"featured_15": {Code: "featured_15", Kind: KindFeatured, Days: 15, AmountCents: 2900, Label: "Featured for 15 days"},
	"featured_30": {Code: "featured_30", Kind: KindFeatured, Days: 30, AmountCents: 4900, Label: "Featured for 30 days"},
	"premium_30":  {Code: "premium_30", Kind: KindPremium, Days: 30, AmountCents: 900, Label: "Premium badge for 30 days"},
}

// LookupPlan returns the plan with the given code.
func LookupPlan(code string) (Plan, bool) {
	p, ok := plans[code]
	return p, ok
}

// Plans lists every plan, cheapest first.
func Plans() []Plan {
	return []Plan{plans["premium_30"], plans["featured_7"], plans["featured_15"], plans["featured_30"]}
}

// Status of a checkout.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Payment records one checkout session and its fulfilment.
type Payment struct {
	common.BaseModel
	SessionID   string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Plan        string    `gorm:"type:varchar(32);not null"`
	AmountCents int64     `gorm:"not null"`
	Currency    string    `gorm:"type:varchar(8);not null"`
	Status      Status    `gorm:"type:varchar(16);not null;default:'pending'"`
	CompletedAt *time.Time
	// PaidAt is the first time the session was claimed; promotion windows start here.
	PaidAt *time.Time
}

func (Payment) TableName() string {
	return "payments"
}

// --- DTOs ---

type CheckoutRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Plan      string `json:"plan" binding:"required,oneof=featured_7 featured_15 featured_30 premium_30"`
}

type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type PaymentResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"product_id"`
	Plan        string     `json:"plan"`
	Amount      string     `json:"amount"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ToPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		ProductID:   p.ProductID,
		Plan:        p.Plan,
		Amount:      FormatAmount(p.AmountCents, p.Currency),
		Status:      p.Status,
		CompletedAt: p.CompletedAt,
		CreatedAt:   p.CreatedAt,
	}
}

// FormatAmount renders minor units as e.g. "19.00 USD".
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currencyCode(currency))
}

func currencyCode(c string) string {
	if c == "" {
		return "USD"
	}
	return strings.ToUpper(c)
}
