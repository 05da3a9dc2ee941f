package domain

import "time"

// Webhook event names sent by the billing provider.
const (
	EventSubscriptionCreated   = "subscription_created"
	EventSubscriptionUpdated   = "subscription_updated"
	EventSubscriptionResumed   = "subscription_resumed"
	EventSubscriptionPaused    = "subscription_paused"
	EventSubscriptionCancelled = "subscription_cancelled"
	EventSubscriptionExpired   = "subscription_expired"
)

// Event is the provider's webhook envelope.
type Event struct {
	Meta EventMeta `json:"meta"`
	Data EventData `json:"data"`
}

type EventMeta struct {
	EventName  string     `json:"event_name"`
	CustomData CustomData `json:"custom_data"`
}

// CustomData carries values we attached at checkout time; UserID links
// the provider's subscription back to our user.
type CustomData struct {
	UserID string `json:"user_id"`
}

type EventData struct {
	// ID is the provider's subscription identifier.
	ID         string          `json:"id"`
	Attributes EventAttributes `json:"attributes"`
}

type EventAttributes struct {
	VariantID       int64      `json:"variant_id"`
	ProductID       int64      `json:"product_id"`
	ProductName     string     `json:"product_name"`
	VariantName     string     `json:"variant_name"`
	CustomerID      int64      `json:"customer_id"`
	OrderID         int64      `json:"order_id"`
	Status          string     `json:"status"`
	StatusFormatted string     `json:"status_formatted"`
	RenewsAt        *time.Time `json:"renews_at"`
	EndsAt          *time.Time `json:"ends_at"`
	TrialEndsAt     *time.Time `json:"trial_ends_at"`
	Pause           *Pause     `json:"pause"`

	FirstSubscriptionItem *SubscriptionItem `json:"first_subscription_item"`
}

type Pause struct {
	Mode string `json:"mode"`
}

type SubscriptionItem struct {
	ID           int64 `json:"id"`
	PriceID      int64 `json:"price_id"`
	IsUsageBased bool  `json:"is_usage_based"`
}

// PlanName is the best human-readable name the payload offers for the
// referenced variant.
func (a EventAttributes) PlanName() string {
	switch {
	case a.VariantName != "":
		return a.VariantName
	case a.ProductName != "":
		return a.ProductName
	default:
		return "unknown plan"
	}
}
