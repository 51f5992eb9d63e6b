// Package queue defines message payloads exchanged over the message broker.
package queue

// CouponRedeemedEvent is published when a user successfully redeems a coupon.
// It carries enough context for downstream consumers to log or feed analytics
// without querying the primary database.
type CouponRedeemedEvent struct {
	RedemptionID uint64 `json:"redemption_id"`
	UserID       uint64 `json:"user_id"`
	CouponID     uint64 `json:"coupon_id"`
	StoreID      uint64 `json:"store_id"`
	CouponName   string `json:"coupon_name"`
	Status       string `json:"status"`
	RedeemedAt   string `json:"redeemed_at"`
}

// EmailEvent asks the notification worker to deliver a transactional email.
// The API never talks SMTP directly; OTP codes and password reset links go
// through this queue so delivery retries stay out of the request path.
type EmailEvent struct {
	To      string `json:"to"`
	Kind    string `json:"kind"` // "otp" or "password_reset"
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}
