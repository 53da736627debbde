// Package timeout defines centralized timeout constants for assistant operations.
package timeout

import "time"

const (
	// LLMCallTimeout bounds one classification or composition call when the
	// profile does not set llm.timeout.
	LLMCallTimeout = 12 * time.Second

	// SpeechTimeout bounds one transcription or synthesis call.
	SpeechTimeout = 30 * time.Second

	// CalendarTimeout bounds one external calendar request.
	CalendarTimeout = 10 * time.Second

	// TurnTimeout bounds a whole turn after its caller lock is held: context
	// assembly, two model calls, handler writes and synthesis.
	TurnTimeout = 90 * time.Second
)
