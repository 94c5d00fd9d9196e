package artifact

import "time"

// MessageDirection indicates whether a message was sent or received on the device.
type MessageDirection string

const (
	MessageSent     MessageDirection = "sent"
	MessageReceived MessageDirection = "received"
)

// CallDirection indicates how a call appeared in the device's call log.
type CallDirection string

const (
	CallIncoming CallDirection = "incoming"
	CallOutgoing CallDirection = "outgoing"
	CallMissed   CallDirection = "missed"
)

// Category is the classification label attached to a message upstream.
// The engine treats it as an opaque attribute; it never computes one.
type Category string

const (
	CategoryNormal            Category = "normal"
	CategoryFraud             Category = "fraud"
	CategoryCriminal          Category = "criminal"
	CategoryCyberbullying     Category = "cyberbullying"
	CategoryThreat            Category = "threat"
	CategoryNegativeSentiment Category = "negative_sentiment"
)

// Categories lists every known classification label in a fixed order,
// used for deterministic tabulation and filtering menus.
var Categories = []Category{
	CategoryNormal,
	CategoryFraud,
	CategoryCriminal,
	CategoryCyberbullying,
	CategoryThreat,
	CategoryNegativeSentiment,
}

// Message is one SMS record extracted from a device. Immutable once loaded.
// SentimentEmoji is an opaque upstream marker, carried through like Category.
type Message struct {
	Address        string           `json:"address"`
	Identity       string           `json:"identity"`
	Timestamp      time.Time        `json:"timestamp"`
	TimeValid      bool             `json:"time_valid"`
	Direction      MessageDirection `json:"direction"`
	Body           string           `json:"body"`
	Suspicious     bool             `json:"suspicious"`
	Category       Category         `json:"category"`
	SentimentEmoji string           `json:"sentiment_emoji,omitempty"`
	ContactName    string           `json:"contact_name,omitempty"`
}

// CallRecord is one call-log entry extracted from a device. Immutable once loaded.
type CallRecord struct {
	Number    string        `json:"number"`
	Identity  string        `json:"identity"`
	Timestamp time.Time     `json:"timestamp"`
	TimeValid bool          `json:"time_valid"`
	Direction CallDirection `json:"direction"`
	Duration  int           `json:"duration"`
}

// Contact is one address-book entry. Immutable per snapshot.
type Contact struct {
	Name     string `json:"name,omitempty"`
	Number   string `json:"number"`
	Identity string `json:"identity"`
}

// Bundle groups one device's raw collections as delivered by a source
// (extraction backend or on-disk dump), before normalization.
type Bundle struct {
	Messages   []RawMessage `json:"messages"`
	Calls      []RawCall    `json:"calls"`
	Contacts   []RawContact `json:"contacts"`
	DeviceName string       `json:"deviceName,omitempty"`
}

// RawMessage mirrors the extraction backend's SMS payload.
type RawMessage struct {
	Address        string `json:"address"`
	Date           string `json:"date"`
	Type           string `json:"type"`
	Body           string `json:"body"`
	IsSuspicious   bool   `json:"isSuspicious"`
	ContactName    string `json:"contactName,omitempty"`
	Category       string `json:"category"`
	SentimentEmoji string `json:"sentimentEmoji,omitempty"`
}

// RawCall mirrors the extraction backend's call-log payload.
type RawCall struct {
	Number   string `json:"number"`
	Type     string `json:"type"`
	Date     string `json:"date"`
	Duration int    `json:"duration,omitempty"`
}

// RawContact mirrors the extraction backend's contact payload.
type RawContact struct {
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phoneNumber"`
}
