package database

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/hasher"
)

// ValidateBlock checks the block can follow the specified parent block. The
// checks run in a fixed order and the first failure is returned wrapping
// one of ErrInvalidLinkage, ErrInsufficientDifficulty, ErrOutOfSequence or
// ErrHashMismatch.
func (r Rules) ValidateBlock(block Block, prevBlock Block) error {
	if block.PrevHash != prevBlock.Hash {
		return fmt.Errorf("%w: blk[%d]: got %s, exp %s", ErrInvalidLinkage, block.ID, block.PrevHash, prevBlock.Hash)
	}

	// A hash that can't be decoded carries no work.
	digest, err := hasher.FromHex(block.Hash)
	if err != nil || !hasher.Solved(r.Difficulty, digest) {
		return fmt.Errorf("%w: blk[%d]: hash %s, difficulty %d", ErrInsufficientDifficulty, block.ID, block.Hash, r.Difficulty)
	}

	if block.ID != prevBlock.ID+1 {
		return fmt.Errorf("%w: blk[%d]: got %d, exp %d", ErrOutOfSequence, block.ID, block.ID, prevBlock.ID+1)
	}

	hash := r.Commit(block.ID, block.TimeStamp, block.PrevHash, block.Data, block.Nonce)
	if block.Hash != hash {
		return fmt.Errorf("%w: blk[%d]: got %s, exp %s", ErrHashMismatch, block.ID, block.Hash, hash)
	}

	return nil
}

// IsBlockValid reports if the block can follow the specified parent block.
func (r Rules) IsBlockValid(block Block, prevBlock Block) bool {
	return r.ValidateBlock(block, prevBlock) == nil
}

// ValidateChain checks every adjacent pair of blocks in the sequence. The
// first block is the trust anchor and is never validated itself. Empty and
// single block sequences are valid.
func (r Rules) ValidateChain(blocks []Block) error {
	for i := 1; i < len(blocks); i++ {
		if err := r.ValidateBlock(blocks[i], blocks[i-1]); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}

	return nil
}

// IsChainValid reports if every adjacent pair of blocks in the sequence
// is valid.
func (r Rules) IsChainValid(blocks []Block) bool {
	return r.ValidateChain(blocks) == nil
}
