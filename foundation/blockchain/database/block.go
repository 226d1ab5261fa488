package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/hasher"
)

// Block represents a single record of the chain. A block is immutable once
// constructed so it is always passed around as a value.
type Block struct {
	ID        uint64 `json:"id"`            // Position in the chain, genesis is 0.
	TimeStamp int64  `json:"timestamp"`     // Seconds since epoch when the block was created.
	PrevHash  string `json:"previous_hash"` // Hash of the parent block.
	Hash      string `json:"hash"`          // Hash of this block's fields, solves the work problem.
	Data      string `json:"data"`          // Opaque payload.
	Nonce     uint64 `json:"nonce"`         // Value identified to solve the hash solution.
}

// NewGenesisBlock constructs the trusted first block of the chain. It is not
// mined and its hash is not derived from its fields.
func NewGenesisBlock(gen genesis.Genesis, now time.Time) Block {
	return Block{
		ID:        0,
		TimeStamp: now.UTC().Unix(),
		PrevHash:  gen.PrevHash,
		Hash:      gen.Hash,
		Data:      gen.Data,
		Nonce:     gen.Nonce,
	}
}

// Fields returns the values of the block committed to by its hash.
func (b Block) Fields() hasher.Fields {
	return hasher.Fields{
		ID:           b.ID,
		PreviousHash: b.PrevHash,
		Data:         b.Data,
		TimeStamp:    b.TimeStamp,
		Nonce:        b.Nonce,
	}
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("%d:%s", b.ID, b.Hash)
}

// =============================================================================

// EventHandler defines a function that is called when events occur in the
// processing of blocks.
type EventHandler func(v string, args ...any)

// noEvents is used when a caller doesn't provide an event handler.
func noEvents(v string, args ...any) {}

// DefaultProgressEvery is the number of nonces tried between progress events.
const DefaultProgressEvery = 1_000_000

// Rules represents the chain wide consensus settings used to mine and
// validate blocks. Every node of a chain must use the same difficulty and
// hasher.
type Rules struct {
	Difficulty    uint          // Number of leading zero bits a block hash needs.
	Hasher        hasher.Hasher // Commitment function for block fields.
	ProgressEvery uint64        // Nonces between mining progress events.
	MaxAttempts   uint64        // Bounds the mining search, 0 is unbounded.
}

// NewRules constructs the rules defined by the genesis parameters.
func NewRules(gen genesis.Genesis) (Rules, error) {
	h, err := gen.Hasher()
	if err != nil {
		return Rules{}, err
	}

	rules := Rules{
		Difficulty:    gen.Difficulty,
		Hasher:        h,
		ProgressEvery: DefaultProgressEvery,
	}

	return rules, nil
}

// Commit returns the hex encoded hash of the specified block fields.
func (r Rules) Commit(id uint64, timestamp int64, prevHash string, data string, nonce uint64) string {
	return hasher.Hex(r.Hasher.Commit(id, timestamp, prevHash, data, nonce))
}

// Mine performs the work of finding the first nonce, starting at zero, that
// produces a hash satisfying the difficulty. The same inputs always produce
// the same nonce and hash. The search can be cancelled through the context.
func (r Rules) Mine(ctx context.Context, id uint64, timestamp int64, prevHash string, data string, ev EventHandler) (uint64, string, error) {
	if ev == nil {
		ev = noEvents
	}

	ev("database: Mine: MINING: started: blk[%d]", id)
	defer ev("database: Mine: MINING: completed: blk[%d]", id)

	progress := r.ProgressEvery
	if progress == 0 {
		progress = DefaultProgressEvery
	}

	var attempts uint64
	var nonce uint64
	for {

		// Did we get cancelled trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: Mine: MINING: CANCELLED: attempts[%d]", attempts)
			return 0, "", ctx.Err()
		}

		// Hash the fields and check if we have solved the puzzle.
		digest := r.Hasher.Commit(id, timestamp, prevHash, data, nonce)
		attempts++

		if hasher.Solved(r.Difficulty, digest) {
			hash := hasher.Hex(digest)
			ev("database: Mine: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: nonce[%d]", prevHash, hash, nonce)
			ev("database: Mine: MINING: attempts[%d]", attempts)
			return nonce, hash, nil
		}

		if attempts%progress == 0 {
			ev("database: Mine: MINING: attempts[%d]", attempts)
		}

		if r.MaxAttempts > 0 && attempts >= r.MaxAttempts {
			ev("database: Mine: MINING: EXHAUSTED: attempts[%d]", attempts)
			return 0, "", fmt.Errorf("%w: %d attempts", ErrMiningExhausted, attempts)
		}

		if nonce == math.MaxUint64 {
			ev("database: Mine: MINING: EXHAUSTED: nonce space")
			return 0, "", fmt.Errorf("%w: nonce space", ErrMiningExhausted)
		}
		nonce++
	}
}

// POW constructs the successor of the specified block and performs the work
// to find a nonce that solves the cryptographic POW puzzle.
func POW(ctx context.Context, rules Rules, prevBlock Block, data string, now time.Time, ev EventHandler) (Block, error) {
	nb := Block{
		ID:        prevBlock.ID + 1,
		TimeStamp: now.UTC().Unix(),
		PrevHash:  prevBlock.Hash,
		Data:      data,
	}

	nonce, hash, err := rules.Mine(ctx, nb.ID, nb.TimeStamp, nb.PrevHash, nb.Data, ev)
	if err != nil {
		return Block{}, err
	}

	nb.Nonce = nonce
	nb.Hash = hash

	return nb, nil
}
