package domain

import "time"

// Verification channels.
const (
	ChannelSMS      = "sms"
	ChannelCall     = "call"
	ChannelTelegram = "telegram"
)

// VerificationRecord stores a one-time code for a (subject, channel) pair.
// PK: subject_id, SK: channel. Issuing a new code for the same pair overwrites
// the previous record, so at most one is ever outstanding per pair.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type VerificationRecord struct {
	SubjectID string    `json:"subject_id" dynamodbav:"subject_id"`
	Channel   string    `json:"channel" dynamodbav:"channel"`
	Code      string    `json:"code" dynamodbav:"code"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	Consumed  bool      `json:"consumed" dynamodbav:"consumed"`
}

// Expired reports whether the record's validity window has passed. Expiry is
// evaluated lazily at consume time; the table TTL only handles storage hygiene.
func (v *VerificationRecord) Expired(now time.Time) bool {
	return v.ExpiresAt < now.Unix()
}

// ChatLink maps a Telegram username to its chat ID. Replaces the bot's
// in-process username cache with a persisted mapping.
type ChatLink struct {
	Username  string    `json:"username" dynamodbav:"username"`
	ChatID    int64     `json:"chat_id" dynamodbav:"chat_id"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// DispatchResult is what a delivery channel returns from a code request.
type DispatchResult struct {
	Channel    string `json:"channel"`
	Hint       string `json:"hint,omitempty"`
	DeepLink   string `json:"deep_link,omitempty"`
	CodeLength int    `json:"code_length"`
	// FallbackCode carries the issued code directly when the delivery
	// collaborator is unavailable outside production. Never populated in
	// production configuration.
	FallbackCode string `json:"fallback_code,omitempty"`
}
