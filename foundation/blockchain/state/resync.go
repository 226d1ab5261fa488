package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// Reorganize corrects an identified fork. No mining is allowed to take place
// while this process is running. New payloads can be placed into the mempool.
func (s *State) Reorganize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allowMining {
		s.evHandler("state: Reorganize: already running")
		return
	}

	// Don't allow mining to continue.
	s.allowMining = false

	// Resync the state of the blockchain.
	s.resyncWG.Add(1)
	go func() {
		s.evHandler("state: Reorganize: started: *****************************")
		defer func() {
			s.turnMiningOn()
			s.evHandler("state: Reorganize: completed: *****************************")
			s.resyncWG.Done()
		}()

		if s.Worker != nil {
			s.Worker.Sync()
			return
		}

		if err := s.Resync(context.Background()); err != nil {
			s.evHandler("state: Reorganize: ERROR: %s", err)
		}
	}()
}

// Resync asks every known peer for its status and, for any peer on the same
// genesis holding a longer chain, fetches the full chain and applies the
// fork choice rule. If neither chain is valid ErrNoValidChain is returned.
func (s *State) Resync(ctx context.Context) error {
	s.evHandler("state: Resync: started")
	defer s.evHandler("state: Resync: completed")

	var errs []error
	for _, pr := range s.RetrieveKnownPeers() {
		if err := s.resyncPeer(ctx, pr); err != nil {
			if errors.Is(err, database.ErrNoValidChain) {
				return err
			}
			errs = append(errs, fmt.Errorf("%s: %w", pr.Host, err))
		}
	}

	return errors.Join(errs...)
}

// resyncPeer runs the fork choice rule against the chain of one peer.
func (s *State) resyncPeer(ctx context.Context, pr peer.Peer) error {
	status, err := s.NetRequestPeerStatus(ctx, pr)
	if err != nil {
		return err
	}

	// Learn about the peers this peer knows.
	for _, known := range status.KnownPeers {
		if !known.Match(s.host) && s.knownPeers.Add(known) {
			s.evHandler("state: Resync: add peer-node[%s]", known)
		}
	}

	gen := s.db.GenesisParams()
	if status.GenesisHash != gen.Hash {
		s.evHandler("state: Resync: peer-node[%s]: foreign genesis[%s]", pr, status.GenesisHash)
		return nil
	}

	// Fork choice can only pick a longer remote chain.
	if status.LatestBlockNumber+1 <= uint64(s.db.Len()) {
		return nil
	}

	blocks, err := s.NetRequestPeerChain(ctx, pr)
	if err != nil {
		return err
	}

	if len(blocks) == 0 || blocks[0].Hash != gen.Hash {
		s.evHandler("state: Resync: peer-node[%s]: chain does not start at genesis", pr)
		return nil
	}

	// Stop any mining in flight while the chain is replaced.
	done := s.signalCancelMining()
	defer done()

	previous := s.db.Blocks()

	replaced, err := s.db.Resolve(blocks)
	if err != nil {
		return err
	}

	if replaced {
		s.evHandler("state: Resync: peer-node[%s]: replaced chain: len[%d]", pr, len(blocks))
		s.reconcileMempool(previous, blocks)
		if latest, exists := s.db.LatestBlock(); exists {
			s.blockEvent(latest)
		}
	}

	return nil
}

// turnMiningOn sets the allowMining flag back to true.
func (s *State) turnMiningOn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowMining = true
}
