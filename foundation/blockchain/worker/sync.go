package worker

import (
	"context"
	"errors"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Sync updates the peer list and replaces the chain when a peer holds a
// longer valid chain.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	if err := w.state.Resync(context.Background()); err != nil {
		if errors.Is(err, database.ErrNoValidChain) {
			w.evHandler("worker: sync: ERROR: no valid chain: %s", err)
			return
		}
		w.evHandler("worker: sync: WARNING: %s", err)
	}
}
