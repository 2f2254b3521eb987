// Package models defines the core data structures for TrackTalk.
//
// It includes types for dialogue messages, conversation state, and tracking
// records, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Author identifies who produced a timeline message.
type Author string

const (
	// AuthorUser marks a message entered by the visitor.
	AuthorUser Author = "user"
	// AuthorAssistant marks a message produced by the assistant.
	AuthorAssistant Author = "assistant"
)

// Origin describes how a message body was produced.
type Origin string

const (
	// OriginScripted marks a fixed, scripted assistant message.
	OriginScripted Origin = "scripted"
	// OriginAIGenerated marks a message produced by the AI collaborator.
	OriginAIGenerated Origin = "ai-generated"
	// OriginUserEntered marks a message typed or selected by the visitor.
	OriginUserEntered Origin = "user-entered"
)

// Validation constants for message content.
const (
	// MaxMessageBodyLength defines the maximum allowed length for a message body.
	MaxMessageBodyLength = 4096
	// MaxQuickReplyLabelLength defines the maximum allowed length for quick reply labels.
	MaxQuickReplyLabelLength = 100
	// MaxInlineFields defines the maximum number of fields in one inline input request.
	MaxInlineFields = 6
)

// Error variables for better error handling and testability.
var (
	ErrEmptyMessageBody   = errors.New("message body cannot be empty")
	ErrMessageBodyTooLong = errors.New("message body exceeds maximum length")
	ErrTrackingNotFound   = errors.New("tracking not found")
	ErrInvalidTransition  = errors.New("invalid tracking status transition")
	ErrInvalidPriceTarget = errors.New("price target must be a positive number")
	ErrSessionNotFound    = errors.New("session not found")
	ErrIntakeRejected     = errors.New("intake submission rejected")
	ErrStaleGeneration    = errors.New("turn belongs to a superseded flow generation")
	ErrStaleAffordance    = errors.New("interactive controls are no longer active")
)

// QuickReply is a predefined choice control attached to an assistant message.
type QuickReply struct {
	Label string `json:"label"` // text shown on the control
	Value string `json:"value"` // token submitted when selected
}

// InlineField describes one typed field inside an inline input request.
type InlineField struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"` // "text", "number", "tel", "checkbox"
	Placeholder string `json:"placeholder,omitempty"`
}

// FieldError reports a validation failure for a single named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InlineInputRequest is a small embedded multi-field form requesting typed
// values within one message turn. Errors annotate a re-rendered request after a
// failed submission.
type InlineInputRequest struct {
	Fields []InlineField `json:"fields"`
	Errors []FieldError  `json:"errors,omitempty"`
}

// RichContent is an optional descriptor for non-text message content.
type RichContent struct {
	Kind string `json:"kind"` // "image", "link-preview"
	URL  string `json:"url"`
}

// Message represents a single dialogue turn in the timeline.
// QuickReplies and InlineInput are actionable only while the message is the
// last one in the timeline.
type Message struct {
	ID           int64               `json:"id"`
	Author       Author              `json:"author"`
	Body         string              `json:"body"`
	Rich         *RichContent        `json:"rich,omitempty"`
	QuickReplies []QuickReply        `json:"quick_replies,omitempty"`
	InlineInput  *InlineInputRequest `json:"inline_input,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	Origin       Origin              `json:"origin"`
}

// HasAffordances reports whether the message carries interactive controls.
func (m *Message) HasAffordances() bool {
	return len(m.QuickReplies) > 0 || m.InlineInput != nil
}

// StripInteractive returns a copy of the message with interactive payloads
// removed, the form persisted in durable session snapshots.
func (m Message) StripInteractive() Message {
	m.QuickReplies = nil
	m.InlineInput = nil
	return m
}

// TurnProducer produces the body of one pending timeline turn. Scripted turns
// resolve synchronously; AI-backed turns block on the collaborator call.
type TurnProducer func() (Message, error)

// PendingTurn is one entry in the sequencer queue: reveal a produced message
// after the given delay, measured from the reveal of the previous turn.
type PendingTurn struct {
	Delay   time.Duration
	Produce TurnProducer
}

// IntakeRequest is the payload submitted to the intake collaborator when all
// required slots are filled.
type IntakeRequest struct {
	ProductName     string     `json:"product_name"`
	StoreKey        string     `json:"store_key"`
	ProductURL      string     `json:"product_url,omitempty"`
	TargetType      TargetType `json:"target_type"`
	TargetValue     float64    `json:"target_value"`
	PhoneE164       string     `json:"phone_e164"`
	WhatsAppConsent bool       `json:"whatsapp_consent"`
}

// IntakeResult is the successful response of the intake collaborator. The
// server-side counterpart reports the price it observed at creation time.
type IntakeResult struct {
	TrackingID   string  `json:"tracking_id"`
	CurrentPrice float64 `json:"current_price,omitempty"`
}

// SessionSnapshot is the durable layout persisted across reloads. Interactive
// payloads are stripped from messages before write; timestamps are re-hydrated
// verbatim on load.
type SessionSnapshot struct {
	Messages []Message         `json:"messages"`
	State    ConversationState `json:"conversation_state"`
	LoggedIn bool              `json:"logged_in"`
}
