package router

import (
	"fmt"
	"strings"
	"time"

	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/session"
)

const (
	maxPromptTasks   = 5
	maxPromptEvents  = 8
	maxPromptHistory = 6
	eventHorizon     = 7 * 24 * time.Hour
)

// ClassificationSystemPrompt frames the model as a strict JSON classifier.
const ClassificationSystemPrompt = `You are the intent classifier of a workplace assistant.
Read the user's message and pick exactly one intent from the list you are given.
Extract parameters using the exact field names shown for that intent. Copy names and titles as the user said them.
Keep dates and times as the user phrased them ("tomorrow", "next friday", "3pm"); do not convert them.
If a required field (one without "?") is missing, set "needsMoreInfo" to a short question asking for it; otherwise set it to false.
Reply with a single JSON object and nothing else.`

// BuildPrompt renders the classification prompt for one utterance.
func BuildPrompt(utterance string, snap *aicontext.Snapshot, history []session.Turn) string {
	var b strings.Builder

	if snap != nil {
		fmt.Fprintf(&b, "Current date: %s\nCurrent time: %s\n\n", snap.CurrentDate, snap.CurrentTime)
		writeTasks(&b, snap)
		writeEvents(&b, snap)
		writeTeam(&b, snap)
	}

	if len(history) > maxPromptHistory {
		history = history[len(history)-maxPromptHistory:]
	}
	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User message: %q\n\n", utterance)

	b.WriteString("Valid intents (name, parameters, when to use):\n")
	for _, c := range intentCatalog {
		fmt.Fprintf(&b, "- %s %s: %s\n", c.Intent, c.Shape, c.Hint)
	}
	b.WriteString(`
Reply with JSON: {"intent": "<one of the names above>", "params": {...}, "needsMoreInfo": false or "<question>"}`)
	return b.String()
}

func writeTasks(b *strings.Builder, snap *aicontext.Snapshot) {
	open := snap.OpenTasks()
	if len(open) == 0 {
		b.WriteString("Pending tasks: none\n\n")
		return
	}
	b.WriteString("Pending tasks:\n")
	for i, t := range open {
		if i == maxPromptTasks {
			fmt.Fprintf(b, "- ...and %d more\n", len(open)-maxPromptTasks)
			break
		}
		fmt.Fprintf(b, "- %s\n", t.Title)
	}
	b.WriteString("\n")
}

func writeEvents(b *strings.Builder, snap *aicontext.Snapshot) {
	var near []string
	horizon := snap.Now.Add(eventHorizon)
	for _, e := range snap.UpcomingEvents() {
		if e.StartTime.After(horizon) || len(near) == maxPromptEvents {
			break
		}
		start := e.StartTime.In(snap.Now.Location())
		near = append(near, fmt.Sprintf("- %s: %s at %s", e.Title, start.Format("Mon Jan 2"), start.Format("3:04 PM")))
	}
	if len(near) == 0 {
		b.WriteString("Upcoming events: none\n\n")
		return
	}
	b.WriteString("Upcoming events:\n")
	b.WriteString(strings.Join(near, "\n"))
	b.WriteString("\n\n")
}

func writeTeam(b *strings.Builder, snap *aicontext.Snapshot) {
	if len(snap.TeamMembers) == 0 {
		return
	}
	b.WriteString("Team members:\n")
	for _, m := range snap.TeamMembers {
		if m.Title != "" {
			fmt.Fprintf(b, "- %s (%s)\n", m.FullName(), m.Title)
		} else {
			fmt.Fprintf(b, "- %s\n", m.FullName())
		}
	}
	b.WriteString("\n")
}
