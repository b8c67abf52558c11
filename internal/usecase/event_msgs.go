package usecase

const (
	ChannelCartPurchased = "cart.purchased.v1"
)

// Published through the outbox after a committed purchase.
type CartPurchasedMsg struct {
	EventID  string             `json:"eventId"`
	CartID   string             `json:"cartId"` // external reference
	UserID   int64              `json:"userId"`
	Currency string             `json:"currency"`
	Total    int64              `json:"total"`
	Lines    []PurchasedLineMsg `json:"lines"`
	At       int64              `json:"at"` // unix millis
}

type PurchasedLineMsg struct {
	ItemID    string `json:"itemId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Sent by the warehouse on Kafka.
type RestockMsg struct {
	ProductID string `json:"productId"` // external reference
	Quantity  int    `json:"quantity"`
}
