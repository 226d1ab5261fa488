package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.db.GenesisParams()
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	block, _ := s.db.LatestBlock()
	return block
}

// RetrieveMempool returns a copy of the mempool in mining order.
func (s *State) RetrieveMempool() []mempool.Entry {
	return s.mempool.Copy()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveStatus returns the status of this node as seen by its peers.
func (s *State) RetrieveStatus() peer.PeerStatus {
	latest := s.RetrieveLatestBlock()

	return peer.PeerStatus{
		GenesisHash:       s.db.GenesisParams().Hash,
		LatestBlockHash:   latest.Hash,
		LatestBlockNumber: latest.ID,
		KnownPeers:        s.RetrieveKnownPeers(),
	}
}

// AddKnownPeer provides the ability to add a new peer to
// the known peer list.
func (s *State) AddKnownPeer(pr peer.Peer) bool {
	if pr.Match(s.host) {
		return false
	}
	return s.knownPeers.Add(pr)
}

// RemoveKnownPeer provides the ability to remove a peer from
// the known peer list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr)
}
