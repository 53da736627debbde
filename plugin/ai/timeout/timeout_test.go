package timeout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTurnOutlastsItsSteps(t *testing.T) {
	steps := 2*LLMCallTimeout + SpeechTimeout + CalendarTimeout
	assert.Greater(t, TurnTimeout, steps)
}
