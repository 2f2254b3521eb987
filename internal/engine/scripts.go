// Package engine implements the branching state machine that drives the
// intake dialogue.
//
// This file holds the scripted copy and the builders that turn it into
// pending timeline turns.
package engine

import (
	"time"

	"github.com/TrackWise/TrackTalk/internal/models"
)

// Reveal delays between consecutive scripted turns. Delays are chained by the
// sequencer, so these are gaps, not absolute offsets.
const (
	firstTurnDelay  = 400 * time.Millisecond
	followUpDelay   = 900 * time.Millisecond
	aiFallbackDelay = 600 * time.Millisecond
)

// Quick reply value tokens.
const (
	replyHasProduct   = "has_product"
	replyNeedsHelp    = "needs_help"
	replySkipLink     = "skip_link"
	replySetPrice     = "set_price"
	replySetPercent   = "set_percent"
	replyAutoChoose   = "auto_choose"
	replyTrackAnother = "track_another"
)

// Scripted assistant copy.
const (
	textGreeting = "Hi! I'm your price-tracking assistant. Tell me what you're after and I'll watch the price for you."
	textPathAsk  = "Do you already know which product you want to track?"

	textAskProduct = "Great! What product should I track? The exact model name works best."
	textAskLink    = "Do you have a link to the product, or a screenshot? It helps me watch the exact listing. You can also skip this."
	textLinkSaved  = "Got it, I'll use that listing."
	textLinkSkip   = "No problem, I'll find the best listing myself."

	textAskTarget     = "Now let's set your target. When should I notify you?"
	textAskTargetSum  = "Enter the price you're aiming for:"
	textAskPercentSum = "Enter the drop percentage that should trigger an alert:"

	textAskPhone   = "Almost done! What's your mobile number? I'll send the alert there."
	textAskName    = "And your first name?"
	textAskConsent = "Last step — confirm you're happy to get WhatsApp alerts about this tracking and we're live."

	textSubmitOK    = "Done! I'm tracking it. You'll hear from me the moment the price hits your target."
	textTrackMore   = "Want me to watch another product?"
	textSubmitRetry = "Hmm, I couldn't create the tracking just now. Give it another try in a moment — your details are saved."

	textAskCategory     = "Let's find it together. What kind of product are you looking for?"
	textAskRequirements = "What matters most to you about it? Any must-have features?"
	textAskBudget       = "Roughly what budget do you have in mind?"
	textAskHelpLink     = "If you've already seen a candidate somewhere, drop me the link or a screenshot. Otherwise just skip."
	textSoftCloseFall   = "Sounds good — I have a clear picture of what you need. Let's lock in a price target."

	textHelpAckFallback = "Noted! Let's keep going."
	textAutoChooseFall  = "I'll start with a sensible default: I'll alert you when the price drops 10% from today's."

	textDefaultElab = "I didn't quite catch that, but no worries — let's continue."
)

// scriptedTurn builds a plain scripted assistant turn.
func scriptedTurn(delay time.Duration, body string) models.PendingTurn {
	return models.PendingTurn{Delay: delay, Produce: func() (models.Message, error) {
		return models.Message{Author: models.AuthorAssistant, Body: body, Origin: models.OriginScripted}, nil
	}}
}

// repliesTurn builds a scripted turn carrying quick reply controls.
func repliesTurn(delay time.Duration, body string, replies []models.QuickReply) models.PendingTurn {
	return models.PendingTurn{Delay: delay, Produce: func() (models.Message, error) {
		return models.Message{Author: models.AuthorAssistant, Body: body, QuickReplies: replies, Origin: models.OriginScripted}, nil
	}}
}

// formTurn builds a scripted turn carrying an inline input request, optionally
// annotated with field errors from a failed submission.
func formTurn(delay time.Duration, body string, fields []models.InlineField, errs []models.FieldError) models.PendingTurn {
	return models.PendingTurn{Delay: delay, Produce: func() (models.Message, error) {
		return models.Message{
			Author:      models.AuthorAssistant,
			Body:        body,
			InlineInput: &models.InlineInputRequest{Fields: fields, Errors: errs},
			Origin:      models.OriginScripted,
		}, nil
	}}
}

func pathReplies() []models.QuickReply {
	return []models.QuickReply{
		{Label: "I know what I want", Value: replyHasProduct},
		{Label: "Help me choose", Value: replyNeedsHelp},
	}
}

func linkReplies() []models.QuickReply {
	return []models.QuickReply{{Label: "Skip", Value: replySkipLink}}
}

func targetReplies() []models.QuickReply {
	return []models.QuickReply{
		{Label: "Set a target price", Value: replySetPrice},
		{Label: "Alert on a % drop", Value: replySetPercent},
		{Label: "Choose for me", Value: replyAutoChoose},
	}
}

func trackAnotherReplies() []models.QuickReply {
	return []models.QuickReply{{Label: "Track another product", Value: replyTrackAnother}}
}

func priceFields() []models.InlineField {
	return []models.InlineField{{Name: "target_value", Label: "Target price (₪)", Type: "number", Placeholder: "850"}}
}

func percentFields() []models.InlineField {
	return []models.InlineField{{Name: "target_value", Label: "Drop (%)", Type: "number", Placeholder: "10"}}
}

func phoneFields() []models.InlineField {
	return []models.InlineField{{Name: "phone", Label: "Mobile number", Type: "tel", Placeholder: "0501234567"}}
}

func consentFields() []models.InlineField {
	return []models.InlineField{{Name: "consent", Label: "Send me WhatsApp alerts for this tracking", Type: "checkbox"}}
}
