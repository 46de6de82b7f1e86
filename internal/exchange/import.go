package exchange

import (
	"context"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// Import applies env to the service state in one replace, clearing undo
// history. Decoding errors leave the state untouched.
func Import(ctx context.Context, svc *core.Service, env Envelope, mode Mode) domain.OpResult {
	return svc.ReplaceState(ctx, "import_"+string(env.Type), func(st core.State) (core.State, error) {
		return Apply(st, env, mode)
	})
}
