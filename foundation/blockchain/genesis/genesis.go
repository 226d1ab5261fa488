// Package genesis maintains access to the genesis parameters of a chain.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/hasher"
)

// Fixed values of the trusted first block.
const (
	PrevHash = "genesis"
	Data     = "genesis!"
	Nonce    = 2836
	Hash     = "0000f816a87f806bb0073dcf026a64fb40c946b5abee2573702828694d5b4c43"
)

// DefaultDifficulty is the number of leading zero bits a block hash needs.
const DefaultDifficulty = 2

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time        `json:"date"`
	Difficulty uint             `json:"difficulty"` // Number of leading zero bits needed to solve the work problem.
	Algorithm  hasher.Algorithm `json:"algorithm"`  // Digest used to commit blocks. Shared by every node of the chain.
	PrevHash   string           `json:"prev_hash"`
	Data       string           `json:"data"`
	Nonce      uint64           `json:"nonce"`
	Hash       string           `json:"hash"`
}

// Default returns the hard coded genesis parameters.
func Default() Genesis {
	return Genesis{
		Difficulty: DefaultDifficulty,
		Algorithm:  hasher.SHA256,
		PrevHash:   PrevHash,
		Data:       Data,
		Nonce:      Nonce,
		Hash:       Hash,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Values missing from the file
// keep their default.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	if _, err := genesis.Hasher(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Hasher returns the hasher configured for this chain. An unknown algorithm
// is an error since a node hashing differently forks from its peers.
func (g Genesis) Hasher() (hasher.Hasher, error) {
	h, err := hasher.New(g.Algorithm)
	if err != nil {
		return hasher.Hasher{}, fmt.Errorf("genesis: %w", err)
	}
	return h, nil
}
