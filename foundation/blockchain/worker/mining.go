package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// maxMiningTries is the number of searches, each with a fresh timestamp, a
// mining operation runs before it yields. The payload stays in the mempool
// for the next operation.
const maxMiningTries = 3

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the oldest payload in the mempool into a new
// block and proposes that block to the known peers.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	if !w.readyToMine() {
		return
	}
	defer w.signalIfPending()

	// A stale cancel request belongs to an operation that already finished.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A canceller hands over a channel that is closed once its state change
	// is complete. It is passed back here so this G can hold on it.
	release := make(chan chan struct{}, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		select {
		case wait := <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
			release <- wait
			cancel()
		case <-ctx.Done():
		}
	}()

	t := time.Now()
	block, err := w.mineBlock(ctx)
	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", time.Since(t))

	cancel()
	wg.Wait()

	switch {
	case err == nil:
		if err := w.state.NetSendBlockToPeers(context.Background(), block); err != nil {
			w.evHandler("worker: runMiningOperation: MINING: proposeBlockToPeers: WARNING %s", err)
		}
	case errors.Is(err, state.ErrNoData):
		w.evHandler("worker: runMiningOperation: MINING: WARNING: no data in mempool")
	case errors.Is(err, context.Canceled):
		w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
	default:
		w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
	}

	// Don't return until the canceller has finished changing state, so the
	// next operation mines on top of the updated chain.
	select {
	case wait := <-release:
		w.evHandler("worker: runMiningOperation: MINING: termination signal: waiting")
		<-wait
		w.evHandler("worker: runMiningOperation: MINING: termination signal: received")
	default:
	}
}

// mineBlock asks the state to mine a new block. An exhausted search is run
// again once the clock moves to the next second, since a block timestamp is
// kept in whole seconds and a new timestamp means a new search space.
func (w *Worker) mineBlock(ctx context.Context) (database.Block, error) {
	for try := 1; ; try++ {
		block, err := w.state.MineNewBlock(ctx)
		if !errors.Is(err, database.ErrMiningExhausted) {
			return block, err
		}

		if try == maxMiningTries {
			w.evHandler("worker: mineBlock: MINING: yielding: tries[%d]: %s", try, err)
			return database.Block{}, err
		}

		now := time.Now()
		delay := now.Truncate(time.Second).Add(time.Second).Sub(now)
		w.evHandler("worker: mineBlock: MINING: retry with new timestamp: try[%d]: delay[%v]", try, delay)

		select {
		case <-ctx.Done():
			return database.Block{}, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// readyToMine reports if mining is allowed and there is a payload to mine.
func (w *Worker) readyToMine() bool {
	if !w.state.IsMiningAllowed() {
		w.evHandler("worker: runMiningOperation: MINING: turned off")
		return false
	}

	if length := w.state.QueryMempoolLength(); length == 0 {
		w.evHandler("worker: runMiningOperation: MINING: no payloads to mine: mempool[%d]", length)
		return false
	}

	return true
}

// signalIfPending starts another mining operation while payloads remain.
func (w *Worker) signalIfPending() {
	length := w.state.QueryMempoolLength()
	if length > 0 && !w.isShutdown() {
		w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: mempool[%d]", length)
		w.SignalStartMining()
	}
}
