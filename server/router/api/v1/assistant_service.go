package v1

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/coworkr/plugin/ai/assistant"
	"github.com/hrygo/coworkr/server/auth"
	aierrors "github.com/hrygo/coworkr/server/internal/errors"
	"github.com/hrygo/coworkr/server/internal/observability"
)

// maxAudioBytes matches the transcription endpoint's upload limit.
const maxAudioBytes = 25 << 20

// TurnRequest is the body of a text turn.
type TurnRequest struct {
	Utterance       string `json:"utterance"`
	WantsVoiceReply bool   `json:"wantsVoiceReply"`
}

// Turn handles one text utterance.
// POST /api/v1/assistant/turn
func (s *APIV1Service) Turn(c echo.Context) error {
	var body TurnRequest
	if err := c.Bind(&body); err != nil {
		return s.fail(c, aierrors.Wrap(err, aierrors.ErrCodeInvalidArgument, "invalid turn body"))
	}

	ctx := c.Request().Context()
	caller, _ := auth.CallerFromContext(ctx)
	resp := s.Assistant.Handle(ctx, &assistant.Request{
		Caller:     caller,
		Utterance:  body.Utterance,
		WantsVoice: body.WantsVoiceReply,
	})
	return s.reply(c, resp)
}

// Voice handles one spoken utterance uploaded as multipart field "file".
// POST /api/v1/assistant/voice
func (s *APIV1Service) Voice(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return s.fail(c, aierrors.Wrap(err, aierrors.ErrCodeInvalidArgument, "missing audio file"))
	}
	if fh.Size > maxAudioBytes {
		return s.fail(c, aierrors.InvalidArgument("audio file too large").WithContext("size", fh.Size))
	}
	wantsVoice, _ := strconv.ParseBool(c.FormValue("wantsVoiceReply"))

	ctx := c.Request().Context()
	if err := s.voiceSemaphore.Acquire(ctx, 1); err != nil {
		return s.fail(c, aierrors.Wrap(err, aierrors.ErrCodeContextCanceled, "voice upload cancelled"))
	}
	defer s.voiceSemaphore.Release(1)

	f, err := fh.Open()
	if err != nil {
		return s.fail(c, aierrors.Wrap(err, aierrors.ErrCodeInvalidArgument, "unreadable audio file"))
	}
	defer f.Close()
	audio, err := io.ReadAll(io.LimitReader(f, maxAudioBytes+1))
	if err != nil {
		return s.fail(c, aierrors.Wrap(err, aierrors.ErrCodeInvalidArgument, "unreadable audio file"))
	}
	if len(audio) > maxAudioBytes {
		return s.fail(c, aierrors.InvalidArgument("audio file too large"))
	}

	caller, _ := auth.CallerFromContext(ctx)
	resp := s.Assistant.HandleVoice(ctx, caller, audio, fh.Filename, wantsVoice)
	return s.reply(c, resp)
}

// reply writes a turn result. Failed turns keep their reply text but are
// reported with a 500 so clients and proxies can tell them apart.
func (s *APIV1Service) reply(c echo.Context, resp *assistant.Response) error {
	status := http.StatusOK
	if resp.Failed {
		status = aierrors.HTTPStatus(aierrors.ErrCodeAgentExecutionFailed)
	}

	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		rc.SetIntent(resp.Intent)
		duration := rc.Duration()
		s.Metrics.RecordRequest(rc.Channel, duration, resp.Failed)
		attrs := []slog.Attr{
			slog.Int(observability.LogFieldStatus, status),
			slog.Int("actions", len(resp.Actions)),
			slog.Bool("needs_more_info", resp.NeedsMoreInfo),
			slog.Int64(observability.LogFieldLatency, duration.Milliseconds()),
		}
		if resp.Failed {
			rc.Error("request failed", errors.New("turn failed"), attrs...)
		} else {
			rc.Info("request completed", attrs...)
		}
	}
	return c.JSON(status, resp)
}
