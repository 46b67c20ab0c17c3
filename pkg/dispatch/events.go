package dispatch

import (
	"context"
	"errors"

	"voicemorph/pkg/engine"
	"voicemorph/pkg/menu"
)

// ErrMessageNotFound is returned by Transport.ResolveMessage when the
// referenced source message is unknown to the transport.
var ErrMessageNotFound = errors.New("source message not found")

// MenuRequest is an inbound "show me the effect menu" event.
//
// Replied is nil when the request does not reply to any message.
type MenuRequest struct {
	Replied *menu.ReplyTarget
}

// ActionRequest is an inbound "apply this menu entry" event carrying the
// entry's token verbatim.
type ActionRequest struct {
	Token string
}

// SourceMessage is a transport message resolved by reference. Voice is nil
// when the message carries no voice content.
type SourceMessage struct {
	ID    string
	Voice engine.Source
}

// Transport is the per-event collaborator the dispatcher drives: it resolves
// message references and delivers responses back to the user.
type Transport interface {
	ResolveMessage(ctx context.Context, sourceID string) (*SourceMessage, error)
	SendMenu(ctx context.Context, entries []menu.Entry) error
	SendNotice(ctx context.Context, text string) error
	// SendStatus shows a transient progress message; the returned revoke
	// function removes it again.
	SendStatus(ctx context.Context, text string) (revoke func(context.Context), err error)
	SendVoice(ctx context.Context, sourceID string, output *engine.Output, caption string) error
}
