package compose

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/coworkr/plugin/ai/agent"
	"github.com/hrygo/coworkr/plugin/ai/session"
)

// SystemPrompt constrains the reply to the facts handed over in the prompt.
const SystemPrompt = `You are Coworkr, a voice assistant for a small team's tasks, calendar and sales pipeline.
Answer using ONLY the facts in RESULT and CONTEXT. Never invent tasks, events, people, dates or amounts.
When RESULT holds a list, mention every item by its exact title and state how many there are.
When RESULT is empty, say plainly that there are none.
Reply in one to three short spoken sentences, or one sentence per list item. Plain text only: no markdown, no bullet points, no quotes around the reply.`

const historyTurns = 6

// BuildPrompt renders the facts a reply may use.
func BuildPrompt(req *Request) string {
	var b strings.Builder

	if snap := req.Snapshot; snap != nil {
		fmt.Fprintf(&b, "CONTEXT\nCurrent date: %s\nCurrent time: %s\n\n", snap.CurrentDate, snap.CurrentTime)
	}

	if history := recent(req.History); len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User message: %q\n", req.Utterance)
	fmt.Fprintf(&b, "Action: %s\n\n", req.Intent)

	b.WriteString("RESULT\n")
	b.WriteString(resultJSON(req.Outcome))
	b.WriteString("\n")

	if l, ok := outcomeListing(req.Outcome); ok && l.Count > 0 {
		fmt.Fprintf(&b, "\nThe reply must name all %d of these, in this order:\n", l.Count)
		for _, t := range l.Titles {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	return b.String()
}

func recent(history []session.Turn) []session.Turn {
	if len(history) > historyTurns {
		return history[len(history)-historyTurns:]
	}
	return history
}

func resultJSON(out *agent.Outcome) string {
	if out == nil || out.Data == nil {
		return `{"success": true}`
	}
	data, err := json.Marshal(out.Data)
	if err != nil {
		return `{"success": true}`
	}
	return string(data)
}

func outcomeListing(out *agent.Outcome) (*agent.Listing, bool) {
	if out == nil {
		return nil, false
	}
	l, ok := out.Data.(*agent.Listing)
	return l, ok
}
