// Package state is the core API for the ledger node and implements the
// business rules for accepting payloads, mining them into blocks and
// keeping the chain in line with the peers of the node.
package state

import (
	"errors"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and peer updates.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// =============================================================================

// Config represents the configuration required to start
// the ledger node.
type Config struct {
	Host       string
	Database   *database.Database
	KnownPeers *peer.PeerSet
	EvHandler  EventHandler
}

// State manages the ledger of the node and the payloads waiting to be mined.
type State struct {
	mu          sync.Mutex
	resyncWG    sync.WaitGroup
	allowMining bool

	host      string
	evHandler EventHandler

	knownPeers *peer.PeerSet
	mempool    *mempool.Mempool
	db         *database.Database

	Worker Worker
}

// New constructs a new state for the node. The genesis block is written when
// the database holds no blocks.
func New(cfg Config) (*State, error) {
	if cfg.Database == nil {
		return nil, errors.New("database not provided")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	if cfg.Database.Len() == 0 {
		block, err := cfg.Database.Genesis()
		if err != nil {
			return nil, err
		}
		ev("state: New: genesis: blk[%s]", block)
	}

	state := State{
		allowMining: true,
		host:        cfg.Host,
		evHandler:   ev,
		knownPeers:  knownPeers,
		mempool:     mempool.New(),
		db:          cfg.Database,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Wait for any resync to finish.
	s.resyncWG.Wait()

	return s.db.Close()
}

// IsMiningAllowed identifies if mining is allowed to take place.
func (s *State) IsMiningAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allowMining
}

// =============================================================================

// signalStartMining asks the worker, if one is registered, to mine.
func (s *State) signalStartMining() {
	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}
}

// signalCancelMining asks the worker, if one is registered, to stop any
// mining in flight. The returned function must be called once the chain
// changes are complete.
func (s *State) signalCancelMining() (done func()) {
	if s.Worker == nil {
		return func() {}
	}
	return s.Worker.SignalCancelMining()
}
