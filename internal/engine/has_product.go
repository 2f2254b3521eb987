package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/validation"
)

// handleHasProduct advances the fixed slot chain of the has-product path:
// product description -> optional link/image -> price target -> phone ->
// first name -> consent + submit -> done.
func (e *Engine) handleHasProduct(ctx context.Context, state models.ConversationState, event models.Event) (Result, error) {
	switch state.Step {
	case 0:
		return e.hpProductDescription(state, event)
	case 1:
		return e.hpLinkOrImage(state, event)
	case 2:
		return e.hpPriceTarget(ctx, state, event)
	case 3:
		return e.hpPhone(state, event)
	case 4:
		return e.hpFirstName(state, event)
	case 5:
		return e.hpConsentAndSubmit(ctx, state, event)
	default:
		return e.hpDone(state, event)
	}
}

func (e *Engine) hpProductDescription(state models.ConversationState, event models.Event) (Result, error) {
	ev, ok := event.(models.FreeTextSubmitted)
	if !ok {
		return e.defaultElaboration(state), nil
	}
	text, errs := validation.NonEmpty("product", ev.Text)
	if len(errs) > 0 {
		return e.defaultElaboration(state), nil
	}

	merge := models.ProductData{Name: text}
	if ev.Attachment != "" {
		merge.Image = ev.Attachment
	}
	state.Product = state.Product.Merge(merge)
	state.Step = 1

	if state.AskedForLink {
		// The optional link slot is asked at most once per conversation.
		state.Step = 2
		return Result{State: state, Turns: []models.PendingTurn{repliesTurn(firstTurnDelay, textAskTarget, targetReplies())}}, nil
	}
	state.AskedForLink = true
	return Result{State: state, Turns: []models.PendingTurn{repliesTurn(firstTurnDelay, textAskLink, linkReplies())}}, nil
}

func (e *Engine) hpLinkOrImage(state models.ConversationState, event models.Event) (Result, error) {
	ack := textLinkSkip
	switch ev := event.(type) {
	case models.QuickReplySelected:
		if ev.Value != replySkipLink {
			return e.defaultElaboration(state), nil
		}
	case models.FreeTextSubmitted:
		merge := models.ProductData{}
		if looksLikeLink(ev.Text) {
			merge.Link = strings.TrimSpace(ev.Text)
			merge.StoreKey = storeKeyFromLink(ev.Text)
			ack = textLinkSaved
		}
		if ev.Attachment != "" {
			merge.Image = ev.Attachment
			ack = textLinkSaved
		}
		if merge == (models.ProductData{}) {
			// Prose instead of a link; treat it as extra product detail.
			merge.Requirements = strings.TrimSpace(ev.Text)
			ack = textLinkSkip
		}
		state.Product = state.Product.Merge(merge)
	default:
		return e.defaultElaboration(state), nil
	}

	state.Step = 2
	return Result{State: state, Turns: []models.PendingTurn{
		scriptedTurn(firstTurnDelay, ack),
		repliesTurn(followUpDelay, textAskTarget, targetReplies()),
	}}, nil
}

// hpPriceTarget handles the price-target slot: an explicit amount, an explicit
// percent drop, or the auto-choose sub-branch that delegates to the AI
// collaborator.
func (e *Engine) hpPriceTarget(ctx context.Context, state models.ConversationState, event models.Event) (Result, error) {
	switch ev := event.(type) {
	case models.QuickReplySelected:
		switch ev.Value {
		case replySetPrice:
			state.Product = state.Product.Merge(models.ProductData{TargetType: models.TargetTypePrice})
			return Result{State: state, Turns: []models.PendingTurn{formTurn(firstTurnDelay, textAskTargetSum, priceFields(), nil)}}, nil
		case replySetPercent:
			state.Product = state.Product.Merge(models.ProductData{TargetType: models.TargetTypePercentDrop})
			return Result{State: state, Turns: []models.PendingTurn{formTurn(firstTurnDelay, textAskPercentSum, percentFields(), nil)}}, nil
		case replyAutoChoose:
			return e.autoChooseTarget(ctx, state)
		}
		return e.defaultElaboration(state), nil

	case models.InlineFormSubmitted:
		value, errs := validation.Price(ev.Values["target_value"])
		if len(errs) > 0 {
			// Re-render the same request annotated with field errors; the
			// chain does not advance.
			fields := priceFields()
			body := textAskTargetSum
			if state.Product.TargetType == models.TargetTypePercentDrop {
				fields = percentFields()
				body = textAskPercentSum
			}
			return Result{State: state, Turns: []models.PendingTurn{formTurn(firstTurnDelay, body, fields, errs)}}, nil
		}
		targetType := state.Product.TargetType
		if !models.IsValidTargetType(targetType) {
			targetType = models.TargetTypePrice
		}
		state.Product = state.Product.Merge(models.ProductData{TargetType: targetType, TargetValue: value})
		state.Step = 3
		return Result{State: state, Turns: []models.PendingTurn{formTurn(firstTurnDelay, textAskPhone, phoneFields(), nil)}}, nil

	case models.FreeTextSubmitted:
		// A bare number typed instead of using the form is accepted.
		if value, errs := validation.Price(ev.Text); len(errs) == 0 {
			targetType := state.Product.TargetType
			if !models.IsValidTargetType(targetType) {
				targetType = models.TargetTypePrice
			}
			state.Product = state.Product.Merge(models.ProductData{TargetType: targetType, TargetValue: value})
			state.Step = 3
			return Result{State: state, Turns: []models.PendingTurn{formTurn(firstTurnDelay, textAskPhone, phoneFields(), nil)}}, nil
		}
		return e.defaultElaboration(state), nil
	}
	return e.defaultElaboration(state), nil
}

func (e *Engine) hpPhone(state models.ConversationState, event models.Event) (Result, error) {
	var raw string
	switch ev := event.(type) {
	case models.InlineFormSubmitted:
		raw = ev.Values["phone"]
	case models.FreeTextSubmitted:
		raw = ev.Text
	default:
		return e.defaultElaboration(state), nil
	}

	canonical, errs := validation.Phone(raw)
	if len(errs) > 0 {
		return Result{State: state, Turns: []models.PendingTurn{formTurn(firstTurnDelay, textAskPhone, phoneFields(), errs)}}, nil
	}
	state.Product = state.Product.Merge(models.ProductData{Phone: canonical})

	if state.Product.FirstName != "" {
		// Name already known from a previous run; skip the slot.
		state.Step = 5
		return Result{State: state, Turns: []models.PendingTurn{formTurn(firstTurnDelay, textAskConsent, consentFields(), nil)}}, nil
	}
	state.Step = 4
	return Result{State: state, Turns: []models.PendingTurn{scriptedTurn(firstTurnDelay, textAskName)}}, nil
}

func (e *Engine) hpFirstName(state models.ConversationState, event models.Event) (Result, error) {
	var raw string
	switch ev := event.(type) {
	case models.FreeTextSubmitted:
		raw = ev.Text
	case models.InlineFormSubmitted:
		raw = ev.Values["first_name"]
	default:
		return e.defaultElaboration(state), nil
	}

	name, errs := validation.Name(raw)
	if len(errs) > 0 {
		return Result{State: state, Turns: []models.PendingTurn{scriptedTurn(firstTurnDelay, textAskName)}}, nil
	}
	state.Product = state.Product.Merge(models.ProductData{FirstName: name})
	state.Step = 5
	return Result{State: state, Turns: []models.PendingTurn{formTurn(firstTurnDelay, textAskConsent, consentFields(), nil)}}, nil
}

// hpConsentAndSubmit is the pre-submit step. Intake failure surfaces a
// retry-inviting message and does not advance past this step; success creates
// exactly one tracking record.
func (e *Engine) hpConsentAndSubmit(ctx context.Context, state models.ConversationState, event models.Event) (Result, error) {
	ev, ok := event.(models.InlineFormSubmitted)
	if !ok {
		return e.defaultElaboration(state), nil
	}
	checked := ev.Values["consent"] == "true" || ev.Values["consent"] == "on" || ev.Values["consent"] == "1"
	if errs := validation.Consent(checked); len(errs) > 0 {
		return Result{State: state, Turns: []models.PendingTurn{formTurn(firstTurnDelay, textAskConsent, consentFields(), errs)}}, nil
	}

	req, err := buildIntakeRequest(state)
	if err != nil {
		slog.Error("engine.hpConsentAndSubmit: slots incomplete at submit step", "error", err, "path", state.Path, "step", state.Step)
		return e.defaultElaboration(state), nil
	}

	var result models.IntakeResult
	if e.intake != nil {
		result, err = e.intake.Submit(ctx, req)
		if err != nil {
			slog.Error("engine.hpConsentAndSubmit: intake submission failed", "error", err, "product", req.ProductName)
			return Result{State: state, Turns: []models.PendingTurn{
				scriptedTurn(firstTurnDelay, textSubmitRetry),
				formTurn(followUpDelay, textAskConsent, consentFields(), nil),
			}}, nil
		}
	}

	if e.trackings != nil {
		if _, err := e.trackings.CreateFromIntake(ctx, req, result.CurrentPrice); err != nil {
			slog.Error("engine.hpConsentAndSubmit: local tracking creation failed", "error", err, "product", req.ProductName)
			return Result{State: state, Turns: []models.PendingTurn{
				scriptedTurn(firstTurnDelay, textSubmitRetry),
				formTurn(followUpDelay, textAskConsent, consentFields(), nil),
			}}, nil
		}
	}

	state.Step = 6
	slog.Info("engine.hpConsentAndSubmit: tracking created", "product", req.ProductName, "targetType", req.TargetType, "targetValue", req.TargetValue)
	return Result{State: state, Turns: []models.PendingTurn{
		scriptedTurn(firstTurnDelay, textSubmitOK),
		repliesTurn(followUpDelay, textTrackMore, trackAnotherReplies()),
	}}, nil
}

// hpDone handles the terminal step: the only recognized action is the
// "check another product" reset, which rewinds path and step but keeps
// identity slots.
func (e *Engine) hpDone(state models.ConversationState, event models.Event) (Result, error) {
	if ev, ok := event.(models.QuickReplySelected); ok && ev.Value == replyTrackAnother {
		reset := state.Reset()
		slog.Debug("engine.hpDone: conversation reset for another product", "keptPhone", reset.Product.Phone != "", "keptName", reset.Product.FirstName != "")
		return Result{State: reset, Turns: []models.PendingTurn{repliesTurn(firstTurnDelay, textPathAsk, pathReplies())}}, nil
	}
	return e.defaultElaboration(state), nil
}
