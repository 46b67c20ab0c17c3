// Package dispatch orchestrates inbound interaction events: menu requests
// become effect menus, action requests drive the transcode pipeline.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"voicemorph/pkg/effects"
	"voicemorph/pkg/engine"
	"voicemorph/pkg/menu"
	"voicemorph/pkg/token"
)

// User-visible failure copy. Internal error detail never reaches the user.
const (
	noticeRetry          = "Произошла ошибка. Пожалуйста, попробуйте еще раз."
	noticeNotFound       = "Не удалось найти голосовое сообщение. Запросите меню эффектов заново."
	noticeNotVoice       = "Пожалуйста, ответьте на голосовое сообщение"
	noticeProcessFailed  = "Произошла ошибка при обработке голосового сообщения"
	statusProcessingBase = "Обработка голосового сообщения с эффектом: %s..."
	captionBase          = "Обработано с эффектом: %s"
)

const defaultMaxConcurrent = 2

// Dispatcher handles each inbound event to completion, independently of all
// other events. The only cross-event state is the read-only catalog and the
// transcode concurrency limiter.
type Dispatcher struct {
	catalog *effects.Catalog
	builder *menu.Builder
	codec   token.Codec
	engine  *engine.Engine
	log     *slog.Logger

	// slots bounds concurrent transcodes; ffmpeg is CPU-costly.
	slots chan struct{}
}

// New constructs a dispatcher. maxConcurrent <= 0 selects the default limit.
func New(catalog *effects.Catalog, builder *menu.Builder, eng *engine.Engine, maxConcurrent int, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	return &Dispatcher{
		catalog: catalog,
		builder: builder,
		engine:  eng,
		log:     log.With("component", "dispatch"),
		slots:   make(chan struct{}, maxConcurrent),
	}
}

// HandleMenu answers a menu request with effect entries or an informational
// entry, per the reply target.
func (d *Dispatcher) HandleMenu(ctx context.Context, req MenuRequest, tr Transport) (err error) {
	defer d.recoverEvent(ctx, tr, &err)

	entries, err := d.builder.Build(req.Replied)
	if err != nil {
		d.log.Error("Failed to build menu", "error", err)
		return tr.SendNotice(ctx, noticeRetry)
	}

	d.log.Info("Menu built", "entries", len(entries), "replied", req.Replied != nil)
	return tr.SendMenu(ctx, entries)
}

// HandleAction resolves an action token, runs the transcode pipeline, and
// delivers the transformed voice message.
//
// Every domain failure is converted into a single non-technical notice; only
// transport delivery failures propagate as errors.
func (d *Dispatcher) HandleAction(ctx context.Context, req ActionRequest, tr Transport) (err error) {
	defer d.recoverEvent(ctx, tr, &err)

	sourceID, effectID, err := d.codec.Decode(req.Token)
	if err != nil {
		d.log.Warn("Rejected malformed action token", "error", err)
		return tr.SendNotice(ctx, noticeRetry)
	}

	effect, err := d.catalog.Lookup(effectID)
	if err != nil {
		d.log.Warn("Rejected token with unknown effect", "effect", effectID)
		return tr.SendNotice(ctx, noticeRetry)
	}

	source, err := tr.ResolveMessage(ctx, sourceID)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			d.log.Warn("Source message not found", "source", sourceID)
			return tr.SendNotice(ctx, noticeNotFound)
		}
		d.log.Error("Failed to resolve source message", "source", sourceID, "error", err)
		return tr.SendNotice(ctx, noticeProcessFailed)
	}

	if source.Voice == nil {
		d.log.Warn("Source message carries no voice content", "source", sourceID)
		return tr.SendNotice(ctx, noticeNotVoice)
	}

	revoke, err := tr.SendStatus(ctx, fmt.Sprintf(statusProcessingBase, effect.DisplayName))
	if err != nil {
		d.log.Warn("Failed to send processing status", "error", err)
		revoke = nil
	}

	output, err := d.transcodeBounded(ctx, source.Voice, effectID)
	if err != nil {
		d.log.Error("Transcode failed", "source", sourceID, "effect", effectID,
			"category", engine.CategoryFromError(err), "error", err)
		if revoke != nil {
			revoke(ctx)
		}
		return tr.SendNotice(ctx, noticeProcessFailed)
	}
	defer output.Release()

	sendErr := tr.SendVoice(ctx, sourceID, output, fmt.Sprintf(captionBase, effect.DisplayName))
	if revoke != nil {
		revoke(ctx)
	}
	if sendErr != nil {
		d.log.Error("Failed to deliver transcoded voice", "source", sourceID, "error", sendErr)
		return tr.SendNotice(ctx, noticeProcessFailed)
	}

	d.log.Info("Effect applied", "source", sourceID, "effect", effectID)
	return nil
}

// transcodeBounded runs one transcode while holding a concurrency slot.
func (d *Dispatcher) transcodeBounded(ctx context.Context, src engine.Source, effectID string) (*engine.Output, error) {
	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, engine.NewError(engine.CategoryTranscodeFailed, "canceled before transcode", ctx.Err())
	}
	defer func() {
		<-d.slots
	}()

	return d.engine.Transcode(ctx, src, effectID)
}

// recoverEvent converts an unexpected panic during event handling into the
// generic failure notice so one event can never take the process down.
func (d *Dispatcher) recoverEvent(ctx context.Context, tr Transport, err *error) {
	r := recover()
	if r == nil {
		return
	}

	d.log.Error("Recovered panic while handling event", "panic", fmt.Sprint(r))
	*err = tr.SendNotice(ctx, noticeProcessFailed)
}
