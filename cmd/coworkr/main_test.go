package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/coworkr/plugin/ai/assistant"
)

type recordingHandler struct {
	got []*assistant.Request
}

func (r *recordingHandler) Handle(_ context.Context, req *assistant.Request) *assistant.Response {
	r.got = append(r.got, req)
	return &assistant.Response{ReplyText: "ok: " + req.Utterance}
}

func TestChatLoop(t *testing.T) {
	h := &recordingHandler{}
	var out bytes.Buffer
	in := strings.NewReader("what are my tasks\n\n  hello  \nexit\nnot read\n")

	require.NoError(t, chatLoop(context.Background(), h, "u-sarah", in, &out))
	require.Len(t, h.got, 2)
	assert.Equal(t, &assistant.Request{Caller: "u-sarah", Utterance: "hello"}, h.got[1])
	assert.Equal(t, "> ok: what are my tasks\n> > ok: hello\n> ", out.String())
}

func TestTokenCommand(t *testing.T) {
	v.Set("jwt.secret", "cli-test-secret")
	defer v.Set("jwt.secret", "")

	var out bytes.Buffer
	tokenCmd.SetOut(&out)
	require.NoError(t, tokenCmd.Flags().Set("caller", "u-sarah"))
	require.NoError(t, tokenCmd.RunE(tokenCmd, nil))
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out.String()), "."))
}
