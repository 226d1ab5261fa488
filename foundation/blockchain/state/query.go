package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// BlockRange identifies a span of blocks by number. A latest flag stands
// for the tail of the chain at the time of the query and overrides the
// number beside it.
type BlockRange struct {
	From       uint64
	To         uint64
	FromLatest bool
	ToLatest   bool
}

// =============================================================================

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks between from and to
// inclusive. The range is clamped to the end of the chain.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	return s.db.BlocksByNumber(from, to)
}

// QueryBlockRange returns the set of blocks identified by the range.
func (s *State) QueryBlockRange(rng BlockRange) []database.Block {
	latest := s.RetrieveLatestBlock().ID

	from, to := rng.From, rng.To
	if rng.FromLatest {
		from = latest
	}
	if rng.ToLatest {
		to = latest
	}

	return s.db.BlocksByNumber(from, to)
}

// QueryChainValid runs the chain validation over the local chain.
func (s *State) QueryChainValid() error {
	return s.db.Rules().ValidateChain(s.db.Blocks())
}
