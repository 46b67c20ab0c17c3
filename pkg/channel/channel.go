package channel

import (
	"context"

	"voicemorph/pkg/dispatch"
)

// Adapter bridges one external transport (for example Telegram) into the
// interaction dispatcher.
type Adapter interface {
	Name() string
	Run(context.Context, *dispatch.Dispatcher) error
}
