// Package models defines the tagged event union consumed by the conversation
// engine. Each user interaction arrives as exactly one of these types, so
// missing-case handling is a test-time property rather than a silent
// fallthrough on raw string tokens.
package models

import "fmt"

// Event is a user interaction delivered to the conversation engine.
type Event interface {
	eventKind() string
}

// QuickReplySelected is emitted when the visitor taps a quick reply control.
type QuickReplySelected struct {
	Value string
}

func (QuickReplySelected) eventKind() string { return "quick_reply" }

// FreeTextSubmitted is emitted when the visitor sends free text, optionally
// with an image attachment URL.
type FreeTextSubmitted struct {
	Text       string
	Attachment string
}

func (FreeTextSubmitted) eventKind() string { return "free_text" }

// InlineFormSubmitted is emitted when the visitor submits an inline input
// request. Values are keyed by field name.
type InlineFormSubmitted struct {
	Values map[string]string
}

func (InlineFormSubmitted) eventKind() string { return "inline_form" }

// EventKind returns the wire token for an event, used for logging and the
// HTTP event envelope.
func EventKind(e Event) string {
	if e == nil {
		return ""
	}
	return e.eventKind()
}

// EventEnvelope is the JSON wire form of the tagged union. Kind selects the
// variant; the remaining fields are read per variant.
type EventEnvelope struct {
	Kind       string            `json:"kind"`
	Value      string            `json:"value,omitempty"`
	Text       string            `json:"text,omitempty"`
	Attachment string            `json:"attachment,omitempty"`
	Values     map[string]string `json:"values,omitempty"`
}

// ToEvent converts the wire envelope into the in-process event type.
func (e EventEnvelope) ToEvent() (Event, error) {
	switch e.Kind {
	case "quick_reply":
		if e.Value == "" {
			return nil, fmt.Errorf("quick_reply event requires a value")
		}
		return QuickReplySelected{Value: e.Value}, nil
	case "free_text":
		if e.Text == "" && e.Attachment == "" {
			return nil, fmt.Errorf("free_text event requires text or an attachment")
		}
		return FreeTextSubmitted{Text: e.Text, Attachment: e.Attachment}, nil
	case "inline_form":
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("inline_form event requires values")
		}
		return InlineFormSubmitted{Values: e.Values}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}
