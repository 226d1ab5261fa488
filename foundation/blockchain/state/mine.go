package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
)

// Set of errors the node can return while processing blocks.
var (
	ErrNoData      = errors.New("no data in mempool")
	ErrChainForked = errors.New("blockchain forked, start resync")
)

// =============================================================================

// SubmitData places the payload in the mempool and signals the worker to
// mine it.
func (s *State) SubmitData(data string) mempool.Entry {
	entry := s.mempool.Add(data, s.db.Now().UTC())

	s.evHandler("state: SubmitData: id[%s]: mempool[%d]", entry.ID, s.mempool.Count())
	s.signalStartMining()

	return entry
}

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. The oldest payload in the mempool is
// used as the block data.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	entry, exists := s.mempool.Next()
	if !exists {
		return database.Block{}, ErrNoData
	}

	latest, exists := s.db.LatestBlock()
	if !exists {
		return database.Block{}, database.ErrEmptyLedger
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: id[%s]", entry.ID)

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, s.db.Rules(), latest, entry.Data, s.db.Now(), database.EventHandler(s.evHandler))
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	if err := s.db.Append(block); err != nil {
		return database.Block{}, err
	}
	s.mempool.Delete(entry.ID)

	s.blockEvent(block)

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local chain. A block from further
// ahead than the next number returns ErrChainForked.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]", block.PrevHash, block.Hash)
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash)

	// If the runMiningOperation function is being executed it needs to stop
	// immediately. The G executing runMiningOperation will not return from the
	// function until done is called. That allows this function to complete
	// its state changes before a new mining operation takes place.
	done := s.signalCancelMining()
	defer func() {
		s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
		done()
	}()

	latest, exists := s.db.LatestBlock()
	if !exists {
		return database.ErrEmptyLedger
	}

	if block.ID > latest.ID+1 {
		return fmt.Errorf("%w: blk[%d]: latest[%d]", ErrChainForked, block.ID, latest.ID)
	}

	if err := s.db.Append(block); err != nil {
		return err
	}

	// The payload was mined by a peer so it must not be mined here again.
	s.pruneMempool([]database.Block{block})

	s.blockEvent(block)

	return nil
}

// =============================================================================

// pruneMempool removes one pending entry, oldest first, for every block
// carrying its payload. The same payload submitted twice is two jobs and
// one block only settles one of them.
func (s *State) pruneMempool(blocks []database.Block) {
	mined := make(map[string]int, len(blocks))
	for _, block := range blocks {
		mined[block.Data]++
	}

	for _, entry := range s.mempool.Copy() {
		if mined[entry.Data] == 0 {
			continue
		}
		mined[entry.Data]--

		s.evHandler("state: pruneMempool: remove id[%s]", entry.ID)
		s.mempool.Delete(entry.ID)
	}
}

// reconcileMempool is run after the local chain was replaced. Payloads of
// local blocks the new chain dropped go back into the mempool, and the
// payloads of blocks that are new to this node are pruned.
func (s *State) reconcileMempool(previous []database.Block, current []database.Block) {
	inCurrent := make(map[string]struct{}, len(current))
	for _, block := range current {
		inCurrent[block.Hash] = struct{}{}
	}

	inPrevious := make(map[string]struct{}, len(previous))
	for _, block := range previous {
		inPrevious[block.Hash] = struct{}{}

		if block.ID == 0 {
			continue
		}
		if _, exists := inCurrent[block.Hash]; !exists {
			entry := s.mempool.Add(block.Data, s.db.Now().UTC())
			s.evHandler("state: reconcileMempool: requeue orphaned blk[%d]: id[%s]", block.ID, entry.ID)
		}
	}

	var adopted []database.Block
	for _, block := range current {
		if _, exists := inPrevious[block.Hash]; !exists {
			adopted = append(adopted, block)
		}
	}

	s.pruneMempool(adopted)
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = fmt.Appendf(nil, "%q", err.Error())
	}

	s.evHandler(`viewer: block: %s`, string(blockJSON))
}
