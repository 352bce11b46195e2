package port

import (
	"context"

	"github.com/diangao/vid2script/internal/domain/entity"
)

// RunRepository persists the per-video run records the batch driver writes.
// Querying the ledger afterwards is a concern of the concrete store, not of
// the batch.
type RunRepository interface {
	Create(ctx context.Context, run *entity.Run) error
	Update(ctx context.Context, run *entity.Run) error
}
