// Package engine implements the (path, step, event) transition function at the
// heart of the intake dialogue, mixing scripted questions with generated
// replies and validating collected answers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/TrackWise/TrackTalk/internal/genai"
	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/openai/openai-go"
)

// Submitter is the intake collaborator: it creates the server-side tracking
// counterpart once all required slots are filled.
type Submitter interface {
	Submit(ctx context.Context, req models.IntakeRequest) (models.IntakeResult, error)
}

// TrackingCreator creates the local tracking record at flow completion. The
// engine is this component's exclusive entry point for creation.
type TrackingCreator interface {
	CreateFromIntake(ctx context.Context, req models.IntakeRequest, currentPrice float64) (models.Tracking, error)
}

// Engine drives dialogue progression for one conversation at a time.
// Transition is free of timing concerns: it returns pending turns and leaves
// their staggered reveal to the sequencer.
type Engine struct {
	genaiClient genai.ClientInterface
	intake      Submitter
	trackings   TrackingCreator
}

// NewEngine creates an engine with its collaborators. The genai client may be
// nil; every AI-backed branch then takes its scripted fallback.
func NewEngine(genaiClient genai.ClientInterface, intake Submitter, trackings TrackingCreator) *Engine {
	slog.Debug("engine.NewEngine: creating engine", "hasGenAI", genaiClient != nil, "hasIntake", intake != nil, "hasTrackings", trackings != nil)
	return &Engine{genaiClient: genaiClient, intake: intake, trackings: trackings}
}

// Result is the outcome of one transition: the successor state and the
// ordered batch of turns to reveal.
type Result struct {
	State models.ConversationState
	Turns []models.PendingTurn
}

// Welcome produces the opening turns for a fresh session.
func (e *Engine) Welcome(state models.ConversationState) Result {
	state.UpdatedAt = time.Now()
	return Result{State: state, Turns: []models.PendingTurn{
		scriptedTurn(firstTurnDelay, textGreeting),
		repliesTurn(followUpDelay, textPathAsk, pathReplies()),
	}}
}

// Transition applies one user event to the conversation state and returns the
// successor state plus the pending outbound turns. It never returns an
// unchanged state for an unrecognized event: unmatched input falls to the
// default elaboration branch.
func (e *Engine) Transition(ctx context.Context, state models.ConversationState, event models.Event) (Result, error) {
	slog.Debug("engine.Transition: handling event", "path", state.Path, "step", state.Step, "event", models.EventKind(event))

	var res Result
	var err error
	switch state.Path {
	case models.PathInitial, "":
		res, err = e.handleInitial(ctx, state, event)
	case models.PathHasProduct:
		res, err = e.handleHasProduct(ctx, state, event)
	case models.PathNeedsHelp:
		res, err = e.handleNeedsHelp(ctx, state, event)
	default:
		slog.Warn("engine.Transition: unknown path, taking default elaboration", "path", state.Path)
		res = e.defaultElaboration(state)
	}
	if err != nil {
		return Result{}, err
	}
	res.State.UpdatedAt = time.Now()
	slog.Debug("engine.Transition: transition complete", "path", res.State.Path, "step", res.State.Step, "turns", len(res.Turns))
	return res, nil
}

// handleInitial covers the path-selection step. Free text here is treated as
// a product description shortcut into the has-product path.
func (e *Engine) handleInitial(ctx context.Context, state models.ConversationState, event models.Event) (Result, error) {
	switch ev := event.(type) {
	case models.QuickReplySelected:
		switch ev.Value {
		case replyHasProduct:
			state.Path = models.PathHasProduct
			state.Step = 0
			return Result{State: state, Turns: []models.PendingTurn{scriptedTurn(firstTurnDelay, textAskProduct)}}, nil
		case replyNeedsHelp:
			state.Path = models.PathNeedsHelp
			state.Step = 0
			return Result{State: state, Turns: []models.PendingTurn{scriptedTurn(firstTurnDelay, textAskCategory)}}, nil
		}
	case models.FreeTextSubmitted:
		if text := strings.TrimSpace(ev.Text); text != "" {
			state.Path = models.PathHasProduct
			state.Step = 0
			return e.handleHasProduct(ctx, state, event)
		}
	}
	return e.defaultElaboration(state), nil
}

// defaultElaboration is the fixed fallback branch for unmatched input. It
// always produces an acknowledgement plus a re-prompt of the current slot,
// and always mutates state (the elaboration counter) so no event can leave
// the machine untouched.
func (e *Engine) defaultElaboration(state models.ConversationState) Result {
	state.Elaborations++
	turns := []models.PendingTurn{scriptedTurn(firstTurnDelay, textDefaultElab)}
	turns = append(turns, e.promptForSlot(state)...)
	slog.Debug("engine.defaultElaboration: fallback taken", "path", state.Path, "step", state.Step, "elaborations", state.Elaborations)
	return Result{State: state, Turns: turns}
}

// promptForSlot rebuilds the question turn for the slot the state is waiting
// on, used by the default elaboration branch and validation re-prompts.
func (e *Engine) promptForSlot(state models.ConversationState) []models.PendingTurn {
	switch state.Path {
	case models.PathHasProduct:
		switch state.Step {
		case 0:
			return []models.PendingTurn{scriptedTurn(followUpDelay, textAskProduct)}
		case 1:
			return []models.PendingTurn{repliesTurn(followUpDelay, textAskLink, linkReplies())}
		case 2:
			return []models.PendingTurn{repliesTurn(followUpDelay, textAskTarget, targetReplies())}
		case 3:
			return []models.PendingTurn{formTurn(followUpDelay, textAskPhone, phoneFields(), nil)}
		case 4:
			return []models.PendingTurn{scriptedTurn(followUpDelay, textAskName)}
		case 5:
			return []models.PendingTurn{formTurn(followUpDelay, textAskConsent, consentFields(), nil)}
		default:
			return []models.PendingTurn{repliesTurn(followUpDelay, textTrackMore, trackAnotherReplies())}
		}
	case models.PathNeedsHelp:
		switch state.Step {
		case 0:
			return []models.PendingTurn{scriptedTurn(followUpDelay, textAskCategory)}
		case 1:
			return []models.PendingTurn{scriptedTurn(followUpDelay, textAskRequirements)}
		case 2:
			return []models.PendingTurn{scriptedTurn(followUpDelay, textAskBudget)}
		default:
			return []models.PendingTurn{repliesTurn(followUpDelay, textAskHelpLink, linkReplies())}
		}
	default:
		return []models.PendingTurn{repliesTurn(followUpDelay, textPathAsk, pathReplies())}
	}
}

// aiReplyTurn builds an asynchronous turn that asks the AI collaborator for a
// contextual reply. Any failure degrades to the given scripted fallback; the
// turn itself never errors, so progression is unaffected by collaborator
// health.
func (e *Engine) aiReplyTurn(ctx context.Context, delay time.Duration, fallback string, messages []openai.ChatCompletionMessageParamUnion) models.PendingTurn {
	return models.PendingTurn{Delay: delay, Produce: func() (models.Message, error) {
		if e.genaiClient == nil {
			return models.Message{Author: models.AuthorAssistant, Body: fallback, Origin: models.OriginScripted}, nil
		}
		reply, err := e.genaiClient.GenerateWithMessages(ctx, messages)
		if err != nil || strings.TrimSpace(reply) == "" {
			slog.Warn("engine.aiReplyTurn: collaborator failed, using scripted fallback", "error", err)
			return models.Message{Author: models.AuthorAssistant, Body: fallback, Origin: models.OriginScripted}, nil
		}
		return models.Message{Author: models.AuthorAssistant, Body: strings.TrimSpace(reply), Origin: models.OriginAIGenerated}, nil
	}}
}

// buildIntakeRequest assembles the submission payload from collected slots.
func buildIntakeRequest(state models.ConversationState) (models.IntakeRequest, error) {
	p := state.Product
	name := p.Name
	if name == "" {
		name = p.Category
	}
	if name == "" {
		return models.IntakeRequest{}, fmt.Errorf("product name slot not filled")
	}
	if !models.IsValidTargetType(p.TargetType) || p.TargetValue <= 0 {
		return models.IntakeRequest{}, fmt.Errorf("price target slot not filled")
	}
	if p.Phone == "" {
		return models.IntakeRequest{}, fmt.Errorf("phone slot not filled")
	}
	storeKey := p.StoreKey
	if storeKey == "" {
		storeKey = "auto"
	}
	return models.IntakeRequest{
		ProductName:     name,
		StoreKey:        storeKey,
		ProductURL:      p.Link,
		TargetType:      p.TargetType,
		TargetValue:     p.TargetValue,
		PhoneE164:       p.Phone,
		WhatsAppConsent: true,
	}, nil
}

// storeKeyFromLink derives a store key from a product URL host, e.g.
// "https://www.amazon.com/dp/X" -> "amazon". Returns "" when no key can be
// derived.
func storeKeyFromLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}

// looksLikeLink reports whether free text is a URL rather than prose.
func looksLikeLink(text string) bool {
	t := strings.TrimSpace(strings.ToLower(text))
	return strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") || strings.HasPrefix(t, "www.")
}
