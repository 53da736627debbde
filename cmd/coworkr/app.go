package main

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/coworkr/internal/profile"
	"github.com/hrygo/coworkr/plugin/ai"
	"github.com/hrygo/coworkr/plugin/ai/agent"
	"github.com/hrygo/coworkr/plugin/ai/assistant"
	"github.com/hrygo/coworkr/plugin/ai/cache"
	"github.com/hrygo/coworkr/plugin/ai/compose"
	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/plugin/ai/session"
	"github.com/hrygo/coworkr/plugin/calendar"
	"github.com/hrygo/coworkr/store"
	"github.com/hrygo/coworkr/store/db"
)

// app is the fully wired assistant with everything it must release on exit.
type app struct {
	profile    *profile.Profile
	store      *store.Store
	kv         cache.CacheService
	cleanup    *session.CleanupJob
	dispatcher *agent.Dispatcher
	assistant  *assistant.Assistant
}

// openStore opens and migrates the record store.
func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	s := store.New(driver, p.DefaultTeam)
	if err := s.Migrate(ctx, p.Mode); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func newApp(ctx context.Context, p *profile.Profile) (_ *app, err error) {
	a := &app{profile: p}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.store, err = openStore(ctx, p); err != nil {
		return nil, err
	}

	if a.kv, err = cache.NewFromProfile(ctx, p.KV); err != nil {
		return nil, errors.Wrap(err, "failed to open kv store")
	}
	if sweeper, ok := a.kv.(cache.Sweeper); ok {
		a.cleanup = session.NewCleanupJob(sweeper, session.DefaultCleanupInterval)
		a.cleanup.Start(ctx)
	}

	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI config")
	}
	var llm ai.LLMService
	if aiConfig.Enabled {
		if llm, err = ai.NewLLMService(ctx, &aiConfig.LLM); err != nil {
			return nil, errors.Wrap(err, "failed to create LLM service")
		}
	} else {
		slog.Warn("no language model configured, only greetings and deterministic replies are available")
	}
	var speech ai.SpeechService
	if aiConfig.Speech.Enabled {
		speech = ai.NewSpeechService(&aiConfig.Speech)
	}

	var cal calendar.Service = calendar.Disabled{}
	if p.Calendar.BaseURL != "" {
		cal = calendar.NewHTTPService(p.Calendar.BaseURL, calendar.NewKVTokenStore(a.kv, 0))
	}

	if a.dispatcher, err = agent.NewDispatcher(a.store, cal); err != nil {
		return nil, errors.Wrap(err, "failed to create dispatcher")
	}

	a.assistant, err = assistant.New(assistant.Config{
		Assembler: aicontext.NewAssembler(aicontext.Config{
			Records:  a.store,
			Team:     a.store,
			Calendar: cal,
			Location: p.Location(),
		}),
		Classifier: router.NewClassifier(llm),
		Dispatcher: a.dispatcher,
		Composer:   compose.NewComposer(llm),
		Session:    session.NewStore(a.kv, p.KV.TTL),
		Speech:     speech,
		Voice:      aiConfig.Speech.Voice,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases every opened resource.
func (a *app) Close() {
	if a.cleanup != nil {
		a.cleanup.Stop()
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			slog.Warn("failed to close kv store", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}
}
