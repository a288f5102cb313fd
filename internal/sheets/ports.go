package sheets

import (
	"context"

	"tally/internal/core"
)

// TransactionAppender is the outbound port for the backup export. The
// returned rowRef identifies the appended row in the destination.
type TransactionAppender interface {
	Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}
