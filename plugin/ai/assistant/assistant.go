// Package assistant runs one conversational turn end to end: context
// assembly, clarification merge, classification, dispatch, reply
// composition and history.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hrygo/coworkr/plugin/ai"
	"github.com/hrygo/coworkr/plugin/ai/agent"
	"github.com/hrygo/coworkr/plugin/ai/compose"
	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/plugin/ai/session"
	"github.com/hrygo/coworkr/plugin/ai/timeout"
)

const (
	// DefaultHistoryTurns is how many recent turns feed the classifier and composer.
	DefaultHistoryTurns = 6

	// maxMergeTokens is the longest reply still read as a clarification answer.
	maxMergeTokens = 6

	// FallbackReply answers a turn that failed unexpectedly.
	FallbackReply = "Sorry, something went wrong on my side. Please try again."

	msgEmpty     = "I didn't catch that. What can I do for you?"
	msgNotHeard  = "Sorry, I couldn't make out the recording. Could you try again or type it instead?"
	msgNeverMind = "Okay, never mind."
)

// Assembler builds the per-turn snapshot.
type Assembler interface {
	Assemble(ctx context.Context, caller string) (*aicontext.Snapshot, error)
}

// Dispatcher executes a classified intent.
type Dispatcher interface {
	Dispatch(ctx context.Context, caller string, c *router.Classification, snap *aicontext.Snapshot) *agent.Outcome
}

// SessionStore is the per-caller conversational state.
type SessionStore interface {
	session.HistoryStore
	session.PendingStore
	NewTurn(role session.Role, content string) session.Turn
}

// Config wires the turn pipeline.
type Config struct {
	Assembler  Assembler
	Classifier router.IntentClassifier
	Dispatcher Dispatcher
	Composer   compose.ResponseComposer
	Session    SessionStore

	// Speech is optional; nil disables voice.
	Speech ai.SpeechService
	Voice  string

	HistoryTurns int // default: DefaultHistoryTurns
}

// Request is one caller utterance.
type Request struct {
	Caller     string
	Utterance  string
	WantsVoice bool
}

// Action is one handler run of a turn.
type Action struct {
	Type    string         `json:"type"`
	Outcome *agent.Outcome `json:"outcome"`
}

// Response is the result of a turn. Failed marks a turn that hit an
// unexpected error; ReplyText is always set.
type Response struct {
	ReplyText     string   `json:"replyText"`
	Audio         []byte   `json:"audio,omitempty"`
	Intent        string   `json:"intent"`
	Actions       []Action `json:"actionsTaken"`
	NeedsMoreInfo bool     `json:"needsMoreInfo,omitempty"`
	Transcript    string   `json:"transcript,omitempty"`
	Failed        bool     `json:"-"`
}

// Assistant orchestrates turns. Turns of one caller run one at a time;
// different callers proceed in parallel.
type Assistant struct {
	cfg   Config
	rules *router.RuleMatcher
	locks *callerLocks
}

// New creates an assistant.
func New(cfg Config) (*Assistant, error) {
	switch {
	case cfg.Assembler == nil:
		return nil, fmt.Errorf("assistant: assembler is required")
	case cfg.Classifier == nil:
		return nil, fmt.Errorf("assistant: classifier is required")
	case cfg.Dispatcher == nil:
		return nil, fmt.Errorf("assistant: dispatcher is required")
	case cfg.Composer == nil:
		return nil, fmt.Errorf("assistant: composer is required")
	case cfg.Session == nil:
		return nil, fmt.Errorf("assistant: session store is required")
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	return &Assistant{cfg: cfg, rules: router.NewRuleMatcher(), locks: newCallerLocks()}, nil
}

// Handle runs one text turn. It never returns without a reply.
func (a *Assistant) Handle(ctx context.Context, req *Request) (resp *Response) {
	start := time.Now()
	utterance := strings.TrimSpace(req.Utterance)
	if utterance == "" {
		return &Response{ReplyText: msgEmpty, Intent: string(router.IntentGeneralChat), Actions: []Action{}}
	}

	if err := a.locks.acquire(ctx, req.Caller); err != nil {
		slog.Warn("turn abandoned while waiting for the previous one", "caller", req.Caller, "error", err)
		return failedResponse()
	}
	defer a.locks.release(req.Caller)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("turn panicked",
				"caller", req.Caller,
				"panic", r,
				"stack", string(debug.Stack()))
			resp = failedResponse()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout.TurnTimeout)
	defer cancel()

	resp = a.turn(ctx, req.Caller, utterance)
	if req.WantsVoice {
		resp.Audio = a.synthesize(ctx, req.Caller, resp.ReplyText)
	}

	slog.Info("turn completed",
		"caller", req.Caller,
		"intent", resp.Intent,
		"needs_more_info", resp.NeedsMoreInfo,
		"failed", resp.Failed,
		"latency_ms", time.Since(start).Milliseconds())
	return resp
}

// HandleVoice transcribes audio and runs it as a text turn. A failed
// transcription is answered conversationally.
func (a *Assistant) HandleVoice(ctx context.Context, caller string, audio []byte, filename string, wantsVoice bool) *Response {
	if a.cfg.Speech == nil {
		return &Response{ReplyText: msgNotHeard, Intent: string(router.IntentGeneralChat), Actions: []Action{}}
	}
	text, err := a.cfg.Speech.Transcribe(ctx, audio, filename)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("transcription failed", "caller", caller, "bytes", len(audio), "error", err)
		return &Response{ReplyText: msgNotHeard, Intent: string(router.IntentGeneralChat), Actions: []Action{}}
	}
	resp := a.Handle(ctx, &Request{Caller: caller, Utterance: text, WantsVoice: wantsVoice})
	resp.Transcript = text
	return resp
}

func (a *Assistant) turn(ctx context.Context, caller, utterance string) *Response {
	snap, err := a.cfg.Assembler.Assemble(ctx, caller)
	if err != nil {
		slog.Error("context assembly failed", "caller", caller, "error", err)
		return failedResponse()
	}

	history, err := a.cfg.Session.Recent(ctx, caller, a.cfg.HistoryTurns)
	if err != nil {
		slog.Warn("history read failed, continuing without it", "caller", caller, "error", err)
		history = nil
	}

	resp := &Response{}
	c, cancelled := a.classify(ctx, caller, utterance, snap, history)
	if cancelled {
		resp.Intent = string(router.IntentGeneralChat)
		resp.Actions = []Action{}
		resp.ReplyText = msgNeverMind
		a.remember(ctx, caller, utterance, resp.ReplyText)
		return resp
	}

	out := a.cfg.Dispatcher.Dispatch(ctx, caller, c, snap)
	resp.Intent = string(c.Intent)
	resp.Actions = []Action{{Type: string(c.Intent), Outcome: out}}

	if out.NeedsMoreInfo != "" {
		a.savePending(ctx, caller, c, out, snap)
		resp.NeedsMoreInfo = true
		resp.ReplyText = compose.Sanitize(out.NeedsMoreInfo)
	} else {
		resp.ReplyText = a.cfg.Composer.Compose(ctx, &compose.Request{
			Utterance: utterance,
			Snapshot:  snap,
			Intent:    c.Intent,
			Outcome:   out,
			History:   history,
		})
	}

	a.remember(ctx, caller, utterance, resp.ReplyText)
	return resp
}

// classify resolves the turn's intent. An outstanding clarification absorbs
// the utterance when it is short and not a greeting, or when the classifier
// could not place it. cancelled reports that the caller dropped the
// clarification.
func (a *Assistant) classify(ctx context.Context, caller, utterance string, snap *aicontext.Snapshot, history []session.Turn) (c *router.Classification, cancelled bool) {
	pending, err := a.cfg.Session.Get(ctx, caller)
	if err != nil {
		slog.Warn("pending clarification read failed", "caller", caller, "error", err)
		pending = nil
	}

	if pending != nil && isNeverMind(utterance) {
		a.clearPending(ctx, caller)
		return nil, true
	}

	mergeable := pending != nil
	if mergeable {
		if _, _, greeting := a.rules.Match(utterance); greeting {
			mergeable = false
		}
	}

	tried := false
	if mergeable && len(strings.Fields(utterance)) <= maxMergeTokens {
		tried = true
		if merged := a.merge(ctx, caller, pending, utterance); merged != nil {
			return merged, false
		}
	}

	c = a.cfg.Classifier.Classify(ctx, utterance, snap, history)
	if mergeable && !tried && c.Intent == router.IntentGeneralChat {
		if merged := a.merge(ctx, caller, pending, utterance); merged != nil {
			return merged, false
		}
	}
	return c, false
}

func (a *Assistant) merge(ctx context.Context, caller string, pending *session.PendingClarification, utterance string) *router.Classification {
	c, err := router.Resume(pending, utterance)
	if err != nil {
		slog.Debug("utterance did not fill the pending clarification", "caller", caller, "error", err)
		return nil
	}
	a.clearPending(ctx, caller)
	slog.Debug("clarification merged",
		"caller", caller,
		"intent", c.Intent,
		"field", pending.Field,
		"ready", c.Ready())
	return c
}

// savePending records the question so the next reply can answer it. A
// question without a mergeable field clears any older clarification.
func (a *Assistant) savePending(ctx context.Context, caller string, c *router.Classification, out *agent.Outcome, snap *aicontext.Snapshot) {
	if out.Field == "" {
		a.clearPending(ctx, caller)
		return
	}
	asked := *c
	asked.Field = out.Field
	asked.NeedsMoreInfo = out.NeedsMoreInfo
	p, err := router.Pending(&asked, snap.Now)
	if err != nil {
		slog.Warn("failed to encode pending clarification", "caller", caller, "error", err)
		return
	}
	if err := a.cfg.Session.Set(ctx, caller, p); err != nil {
		slog.Warn("failed to save pending clarification", "caller", caller, "error", err)
	}
}

func (a *Assistant) clearPending(ctx context.Context, caller string) {
	if err := a.cfg.Session.Clear(ctx, caller); err != nil {
		slog.Warn("failed to clear pending clarification", "caller", caller, "error", err)
	}
}

func (a *Assistant) remember(ctx context.Context, caller, utterance, reply string) {
	s := a.cfg.Session
	if err := s.Append(ctx, caller, s.NewTurn(session.RoleUser, utterance), s.NewTurn(session.RoleAssistant, reply)); err != nil {
		slog.Warn("failed to append history", "caller", caller, "error", err)
	}
}

// synthesize degrades to a text-only reply on any speech failure.
func (a *Assistant) synthesize(ctx context.Context, caller, text string) []byte {
	if a.cfg.Speech == nil || text == "" {
		return nil
	}
	audio, err := a.cfg.Speech.Synthesize(ctx, text, a.cfg.Voice)
	if err != nil {
		slog.Warn("speech synthesis failed, replying with text only", "caller", caller, "error", err)
		return nil
	}
	return audio
}

func failedResponse() *Response {
	return &Response{
		ReplyText: FallbackReply,
		Intent:    string(router.IntentGeneralChat),
		Actions:   []Action{},
		Failed:    true,
	}
}

func isNeverMind(utterance string) bool {
	switch strings.Trim(strings.ToLower(strings.TrimSpace(utterance)), ".!") {
	case "cancel", "never mind", "nevermind", "forget it", "stop", "nothing":
		return true
	}
	return false
}
