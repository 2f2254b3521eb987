package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/validation"
	"github.com/openai/openai-go"
)

const needsHelpSystemPrompt = "You are a warm, concise shopping assistant helping a visitor figure out which " +
	"product to buy so its price can be tracked. React briefly to the visitor's latest answer in one or two " +
	"sentences. Do not ask the next question yourself; the script handles that. Never mention prices or targets."

// handleNeedsHelp advances the guided-discovery path: category -> requirements
// -> budget -> optional link/image -> soft-close. Every answer is forwarded to
// the AI collaborator for a contextual aside, but slot completion drives the
// step counter independently of what the AI returns. After the soft-close the
// flow merges into the has-product path at the price-target slot.
func (e *Engine) handleNeedsHelp(ctx context.Context, state models.ConversationState, event models.Event) (Result, error) {
	switch state.Step {
	case 0:
		return e.nhSlot(ctx, state, event, "category", textAskRequirements, func(p *models.ProductData, v string) { p.Category = v })
	case 1:
		return e.nhSlot(ctx, state, event, "requirements", textAskBudget, func(p *models.ProductData, v string) { p.Requirements = v })
	case 2:
		return e.nhBudget(ctx, state, event)
	case 3:
		return e.nhLinkAndClose(ctx, state, event)
	default:
		return e.defaultElaboration(state), nil
	}
}

// nhSlot collects one free-text slot, pairs the AI aside with the next
// scripted question, and advances the step.
func (e *Engine) nhSlot(ctx context.Context, state models.ConversationState, event models.Event, slot, nextQuestion string, assign func(*models.ProductData, string)) (Result, error) {
	ev, ok := event.(models.FreeTextSubmitted)
	if !ok {
		return e.defaultElaboration(state), nil
	}
	text, errs := validation.NonEmpty(slot, ev.Text)
	if len(errs) > 0 {
		return e.defaultElaboration(state), nil
	}

	product := state.Product
	assign(&product, text)
	state.Product = state.Product.Merge(product)
	state.Step++

	return Result{State: state, Turns: []models.PendingTurn{
		e.aiReplyTurn(ctx, firstTurnDelay, textHelpAckFallback, e.buildHelpMessages(state, text)),
		scriptedTurn(followUpDelay, nextQuestion),
	}}, nil
}

func (e *Engine) nhBudget(ctx context.Context, state models.ConversationState, event models.Event) (Result, error) {
	ev, ok := event.(models.FreeTextSubmitted)
	if !ok {
		return e.defaultElaboration(state), nil
	}
	text, errs := validation.NonEmpty("budget", ev.Text)
	if len(errs) > 0 {
		return e.defaultElaboration(state), nil
	}
	state.Product = state.Product.Merge(models.ProductData{Budget: text})
	state.Step = 3

	return Result{State: state, Turns: []models.PendingTurn{
		e.aiReplyTurn(ctx, firstTurnDelay, textHelpAckFallback, e.buildHelpMessages(state, text)),
		repliesTurn(followUpDelay, textAskHelpLink, linkReplies()),
	}}, nil
}

// nhLinkAndClose collects the optional link/image slot, emits the soft-close
// aside, and merges the conversation into the has-product path at the
// price-target slot so the flow progresses on schedule.
func (e *Engine) nhLinkAndClose(ctx context.Context, state models.ConversationState, event models.Event) (Result, error) {
	var answered string
	switch ev := event.(type) {
	case models.QuickReplySelected:
		if ev.Value != replySkipLink {
			return e.defaultElaboration(state), nil
		}
		answered = "no link"
	case models.FreeTextSubmitted:
		merge := models.ProductData{}
		if looksLikeLink(ev.Text) {
			merge.Link = strings.TrimSpace(ev.Text)
			merge.StoreKey = storeKeyFromLink(ev.Text)
		}
		if ev.Attachment != "" {
			merge.Image = ev.Attachment
		}
		state.Product = state.Product.Merge(merge)
		answered = strings.TrimSpace(ev.Text)
	default:
		return e.defaultElaboration(state), nil
	}

	state.Path = models.PathHasProduct
	state.Step = 2
	return Result{State: state, Turns: []models.PendingTurn{
		e.aiReplyTurn(ctx, firstTurnDelay, textSoftCloseFall, e.buildHelpMessages(state, answered)),
		repliesTurn(followUpDelay, textAskTarget, targetReplies()),
	}}, nil
}

// buildHelpMessages assembles the ordered role/content messages for a
// contextual aside, front-loading the slots collected so far.
func (e *Engine) buildHelpMessages(state models.ConversationState, latestAnswer string) []openai.ChatCompletionMessageParamUnion {
	p := state.Product
	collected := fmt.Sprintf("Collected so far: category=%q, requirements=%q, budget=%q.", p.Category, p.Requirements, p.Budget)
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(needsHelpSystemPrompt),
		openai.SystemMessage(collected),
		openai.UserMessage(latestAnswer),
	}
}
