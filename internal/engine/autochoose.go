package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/openai/openai-go"
)

// The auto-choose sub-branch asks the AI collaborator to propose a target and
// best-effort-extracts two tagged numeric fields from its free-text reply.
// Extraction failure falls back to a fixed 10% drop; that fallback is the
// contract, not an accident.
const autoChooseFallbackPercent = 10

var (
	targetPriceTagRe = regexp.MustCompile(`\[TARGET_PRICE:\s*([0-9]+(?:\.[0-9]+)?)\]`)
	percentDropTagRe = regexp.MustCompile(`\[PERCENT_DROP:\s*([0-9]+(?:\.[0-9]+)?)\]`)
)

const autoChooseSystemPrompt = "You are a pricing assistant. Given a product description, propose a sensible " +
	"price-drop alert for an Israeli shopper. Reply with one short friendly sentence, and embed exactly two tags " +
	"anywhere in it: [TARGET_PRICE: <number in shekels>] and [PERCENT_DROP: <number>]. If you cannot estimate an " +
	"absolute price, still include both tags and set TARGET_PRICE to 0."

// autoChooseTarget resolves the "choose for me" quick reply. The collaborator
// call is a suspension point: the session's event queue waits on it, and the
// dependent turns are revealed only after it resolves or falls back.
func (e *Engine) autoChooseTarget(ctx context.Context, state models.ConversationState) (Result, error) {
	targetType, value, note := e.suggestTarget(ctx, state)
	state.Product = state.Product.Merge(models.ProductData{TargetType: targetType, TargetValue: value})
	state.Step = 3

	return Result{State: state, Turns: []models.PendingTurn{
		scriptedTurn(firstTurnDelay, note),
		formTurn(followUpDelay, textAskPhone, phoneFields(), nil),
	}}, nil
}

// suggestTarget asks the collaborator for a suggestion and extracts the tagged
// fields. Every failure mode (call error, missing tags, nonsense values)
// degrades to the fixed percent-drop default and a deterministic sentence.
func (e *Engine) suggestTarget(ctx context.Context, state models.ConversationState) (models.TargetType, float64, string) {
	if e.genaiClient == nil {
		return models.TargetTypePercentDrop, autoChooseFallbackPercent, textAutoChooseFall
	}

	p := state.Product
	desc := p.Name
	if desc == "" {
		desc = strings.TrimSpace(p.Category + " " + p.Requirements)
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(autoChooseSystemPrompt),
		openai.UserMessage(fmt.Sprintf("Product: %s. Budget hint: %s.", desc, p.Budget)),
	}

	reply, err := e.genaiClient.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Warn("engine.suggestTarget: collaborator failed, using fixed default", "error", err)
		return models.TargetTypePercentDrop, autoChooseFallbackPercent, textAutoChooseFall
	}

	price, priceOK := extractTaggedNumber(targetPriceTagRe, reply)
	percent, percentOK := extractTaggedNumber(percentDropTagRe, reply)

	clean := stripTags(reply)
	switch {
	case priceOK && price > 0:
		slog.Debug("engine.suggestTarget: extracted target price", "price", price)
		return models.TargetTypePrice, price, clean
	case percentOK && percent > 0 && percent < 100:
		slog.Debug("engine.suggestTarget: extracted percent drop", "percent", percent)
		return models.TargetTypePercentDrop, percent, clean
	default:
		slog.Warn("engine.suggestTarget: no usable tags in reply, using fixed default", "replyLength", len(reply))
		return models.TargetTypePercentDrop, autoChooseFallbackPercent, textAutoChooseFall
	}
}

func extractTaggedNumber(re *regexp.Regexp, reply string) (float64, bool) {
	m := re.FindStringSubmatch(reply)
	if len(m) != 2 {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// stripTags removes the tag markup from a reply so the visitor sees prose.
func stripTags(reply string) string {
	out := targetPriceTagRe.ReplaceAllString(reply, "")
	out = percentDropTagRe.ReplaceAllString(out, "")
	out = strings.Join(strings.Fields(out), " ")
	if out == "" {
		return textAutoChooseFall
	}
	return out
}
