package assistant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hrygo/coworkr/plugin/ai"
	"github.com/hrygo/coworkr/plugin/ai/agent"
	"github.com/hrygo/coworkr/plugin/ai/cache"
	"github.com/hrygo/coworkr/plugin/ai/compose"
	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/plugin/ai/session"
	"github.com/hrygo/coworkr/store"
	storetest "github.com/hrygo/coworkr/store/test"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	store      *store.Store
	session    *session.Store
	classifier *router.MockClassifier
	llm        *ai.MockLLM
	assistant  *Assistant
}

// newHarness wires the real pipeline around a scripted classifier and LLM.
func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	st := storetest.NewTestingStore(ctx, t)
	_, err := st.UpsertTeamMember(ctx, &store.TeamMember{ID: "u-david", FirstName: "David", LastName: "Okafor"})
	require.NoError(t, err)

	dispatcher, err := agent.NewDispatcher(st, nil)
	require.NoError(t, err)

	h := &harness{
		store:      st,
		session:    session.NewStore(cache.NewMemoryCache(100, time.Hour), 0),
		classifier: router.NewMockClassifier(),
		llm:        ai.NewMockLLM(),
	}
	h.llm.Fallback = func(string, string) (string, error) { return "All set.", nil }
	h.assistant, err = New(Config{
		Assembler:  aicontext.NewAssembler(aicontext.Config{Records: st, Team: st, Location: time.UTC}),
		Classifier: h.classifier,
		Dispatcher: dispatcher,
		Composer:   compose.NewComposer(h.llm),
		Session:    h.session,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) say(t *testing.T, utterance string) *Response {
	t.Helper()
	resp := h.assistant.Handle(context.Background(), &Request{Caller: "alice", Utterance: utterance})
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.ReplyText)
	return resp
}

func (h *harness) tasks(t *testing.T, owner string) []*store.Task {
	t.Helper()
	records, err := h.store.List(context.Background(), owner, store.KindTask, nil)
	require.NoError(t, err)
	return store.DecodeAll[store.Task](records)
}

func TestClarificationRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.classifier.On("assign a task to David", &router.AssignTaskParams{AssigneeName: "David"})

	resp := h.say(t, "assign a task to David")
	assert.Equal(t, string(router.IntentAssignTask), resp.Intent)
	assert.True(t, resp.NeedsMoreInfo)
	assert.Equal(t, "What's the task you want to assign?", resp.ReplyText)
	assert.Empty(t, h.llm.Calls(), "a clarification skips composition")
	assert.Empty(t, h.tasks(t, "u-david"))

	pending, err := h.session.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "title", pending.Field)

	resp = h.say(t, "product review")
	assert.Equal(t, string(router.IntentAssignTask), resp.Intent)
	assert.False(t, resp.NeedsMoreInfo)
	require.Len(t, resp.Actions, 1)
	require.True(t, resp.Actions[0].Outcome.Success, resp.Actions[0].Outcome.Error)

	assigned := resp.Actions[0].Outcome.Data.(*agent.AssignedTask)
	assert.Equal(t, "David Okafor", assigned.Assignee)
	assert.Equal(t, "product review", assigned.Task.Title)

	tasks := h.tasks(t, "u-david")
	require.Len(t, tasks, 1)
	assert.Equal(t, "product review", tasks[0].Title)

	pending, err = h.session.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, pending)

	assert.Equal(t, []string{"assign a task to David"}, h.classifier.Calls(), "a short answer is merged without classification")

	history, err := h.session.Recent(context.Background(), "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "assign a task to David", history[0].Content)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
	assert.Equal(t, "product review", history[2].Content)
}

func TestClarificationMergedAfterGeneralChat(t *testing.T) {
	h := newHarness(t)
	h.classifier.On("add a task", &router.CreateTaskParams{})

	resp := h.say(t, "add a task")
	assert.Equal(t, "What's the task you want to create?", resp.ReplyText)

	resp = h.say(t, "call the insurance company about the claim from last week please")
	assert.Equal(t, string(router.IntentCreateTask), resp.Intent)
	require.True(t, resp.Actions[0].Outcome.Success)
	assert.Len(t, h.classifier.Calls(), 2)
	require.Len(t, h.tasks(t, "alice"), 1)
}

func TestClarificationNotMerged(t *testing.T) {
	h := newHarness(t)
	h.classifier.On("add a task", &router.CreateTaskParams{})
	h.classifier.On("how many deals do we have in the pipeline right now", &router.QueryParams{DataType: "deals"})

	h.say(t, "add a task")

	t.Run("greeting is not an answer", func(t *testing.T) {
		resp := h.say(t, "hello")
		assert.Equal(t, string(router.IntentGeneralChat), resp.Intent)
		assert.Empty(t, h.tasks(t, "alice"))
	})

	t.Run("a different request runs on its own", func(t *testing.T) {
		resp := h.say(t, "how many deals do we have in the pipeline right now")
		assert.Equal(t, string(router.IntentQuery), resp.Intent)
		assert.Equal(t, "You don't have any deals.", resp.ReplyText)
		require.True(t, resp.Actions[0].Outcome.Success)
		assert.Empty(t, resp.Actions[0].Outcome.Error)
	})

	t.Run("never mind drops the question", func(t *testing.T) {
		resp := h.say(t, "never mind")
		assert.Equal(t, msgNeverMind, resp.ReplyText)
		pending, err := h.session.Get(context.Background(), "alice")
		require.NoError(t, err)
		assert.Nil(t, pending)
	})
}

func TestEmptyUtterance(t *testing.T) {
	h := newHarness(t)
	resp := h.assistant.Handle(context.Background(), &Request{Caller: "alice", Utterance: "   "})
	assert.Equal(t, msgEmpty, resp.ReplyText)
	assert.Empty(t, h.classifier.Calls())
}

// ============================================================================
// Pipeline doubles
// ============================================================================

type staticAssembler struct{ err error }

func (a staticAssembler) Assemble(_ context.Context, caller string) (*aicontext.Snapshot, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &aicontext.Snapshot{Caller: caller, Now: time.Now(), Location: time.UTC}, nil
}

// gateDispatcher blocks until released and tracks concurrency per caller.
type gateDispatcher struct {
	release chan struct{}
	panics  bool

	mu      sync.Mutex
	active  map[string]int
	maxSeen map[string]int
	total   atomic.Int32
	peak    atomic.Int32
}

func newGateDispatcher() *gateDispatcher {
	return &gateDispatcher{release: make(chan struct{}), active: map[string]int{}, maxSeen: map[string]int{}}
}

func (d *gateDispatcher) Dispatch(_ context.Context, caller string, _ *router.Classification, _ *aicontext.Snapshot) *agent.Outcome {
	if d.panics {
		panic("handler bug")
	}
	d.mu.Lock()
	d.active[caller]++
	if d.active[caller] > d.maxSeen[caller] {
		d.maxSeen[caller] = d.active[caller]
	}
	d.mu.Unlock()
	if n := d.total.Add(1); n > d.peak.Load() {
		d.peak.Store(n)
	}

	<-d.release

	d.total.Add(-1)
	d.mu.Lock()
	d.active[caller]--
	d.mu.Unlock()
	return &agent.Outcome{Success: true}
}

func newStubAssistant(t *testing.T, asm Assembler, d Dispatcher, speech ai.SpeechService) *Assistant {
	t.Helper()
	a, err := New(Config{
		Assembler:  asm,
		Classifier: router.NewMockClassifier(),
		Dispatcher: d,
		Composer:   compose.NewComposer(nil),
		Session:    session.NewStore(cache.NewMemoryCache(100, time.Hour), 0),
		Speech:     speech,
	})
	require.NoError(t, err)
	return a
}

func TestTurnsSerializedPerCaller(t *testing.T) {
	d := newGateDispatcher()
	a := newStubAssistant(t, staticAssembler{}, d, nil)

	var wg sync.WaitGroup
	for _, caller := range []string{"alice", "alice", "alice", "bob", "bob"} {
		wg.Add(1)
		go func(caller string) {
			defer wg.Done()
			a.Handle(context.Background(), &Request{Caller: caller, Utterance: "what's new"})
		}(caller)
	}

	// alice and bob each get one turn in flight at a time.
	require.Eventually(t, func() bool { return d.total.Load() == 2 }, time.Second, 5*time.Millisecond)
	for i := 0; i < 5; i++ {
		d.release <- struct{}{}
	}
	wg.Wait()

	assert.Equal(t, 1, d.maxSeen["alice"])
	assert.Equal(t, 1, d.maxSeen["bob"])
	assert.Equal(t, int32(2), d.peak.Load())
	assert.Zero(t, a.locks.size())
}

func TestWaitingTurnCancelled(t *testing.T) {
	d := newGateDispatcher()
	a := newStubAssistant(t, staticAssembler{}, d, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Handle(context.Background(), &Request{Caller: "alice", Utterance: "first"})
	}()
	require.Eventually(t, func() bool { return d.total.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	resp := a.Handle(ctx, &Request{Caller: "alice", Utterance: "second"})
	assert.True(t, resp.Failed)
	assert.Equal(t, FallbackReply, resp.ReplyText)

	d.release <- struct{}{}
	<-done
	assert.Zero(t, a.locks.size())
}

func TestPanicRecovered(t *testing.T) {
	d := newGateDispatcher()
	d.panics = true
	a := newStubAssistant(t, staticAssembler{}, d, nil)

	resp := a.Handle(context.Background(), &Request{Caller: "alice", Utterance: "boom"})
	assert.True(t, resp.Failed)
	assert.Equal(t, FallbackReply, resp.ReplyText)
	assert.Zero(t, a.locks.size())
}

func TestAssemblyFailure(t *testing.T) {
	a := newStubAssistant(t, staticAssembler{err: context.DeadlineExceeded}, newGateDispatcher(), nil)
	resp := a.Handle(context.Background(), &Request{Caller: "alice", Utterance: "hi there"})
	assert.True(t, resp.Failed)
}

// ============================================================================
// Voice
// ============================================================================

type fakeSpeech struct {
	transcript    string
	transcribeErr error
	synthErr      error
	spoken        []string
}

func (s *fakeSpeech) Transcribe(context.Context, []byte, string) (string, error) {
	return s.transcript, s.transcribeErr
}

func (s *fakeSpeech) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	if s.synthErr != nil {
		return nil, s.synthErr
	}
	s.spoken = append(s.spoken, text)
	return []byte("mp3:" + text), nil
}

func TestHandleVoice(t *testing.T) {
	ok := func() *gateDispatcher {
		d := newGateDispatcher()
		close(d.release)
		return d
	}

	t.Run("transcribed and spoken", func(t *testing.T) {
		speech := &fakeSpeech{transcript: "hello there"}
		a := newStubAssistant(t, staticAssembler{}, ok(), speech)

		resp := a.HandleVoice(context.Background(), "alice", []byte("audio"), "voice.webm", true)
		assert.Equal(t, "hello there", resp.Transcript)
		assert.Equal(t, chatReply, resp.ReplyText)
		assert.Equal(t, []byte("mp3:"+chatReply), resp.Audio)
	})

	t.Run("synthesis failure keeps the text", func(t *testing.T) {
		speech := &fakeSpeech{transcript: "hello there", synthErr: errors.New("tts down")}
		a := newStubAssistant(t, staticAssembler{}, ok(), speech)

		resp := a.HandleVoice(context.Background(), "alice", []byte("audio"), "voice.webm", true)
		assert.NotEmpty(t, resp.ReplyText)
		assert.Nil(t, resp.Audio)
		assert.False(t, resp.Failed)
	})

	t.Run("transcription failure", func(t *testing.T) {
		speech := &fakeSpeech{transcribeErr: errors.New("whisper down")}
		a := newStubAssistant(t, staticAssembler{}, ok(), speech)

		resp := a.HandleVoice(context.Background(), "alice", []byte("audio"), "voice.webm", false)
		assert.Equal(t, msgNotHeard, resp.ReplyText)
		assert.False(t, resp.Failed)
	})
}

const chatReply = "I can help with your tasks, calendar and deals. What would you like to do?"
