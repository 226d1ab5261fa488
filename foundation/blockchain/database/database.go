// Package database handles all the lower level support for maintaining the
// blockchain in memory and on the configured storage. It implements the
// mining, validation and fork choice rules of the chain.
package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(block Block) error
	GetBlock(num uint64) (Block, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (Block, error)
	Done() bool
}

// =============================================================================

// Config represents the configuration required to construct a database.
type Config struct {
	Genesis       genesis.Genesis
	Serializer    Serializer
	ProgressEvery uint64
	MaxAttempts   uint64
	Now           func() time.Time
	EvHandler     EventHandler
}

// Database owns the canonical sequence of blocks. Index 0 is the genesis
// block and is never removed or reordered.
type Database struct {
	mu sync.RWMutex

	genesis    genesis.Genesis
	rules      Rules
	blocks     []Block
	serializer Serializer
	now        func() time.Time
	evHandler  EventHandler
}

// New constructs a database. If a serializer is provided, the blocks it holds
// are read and validated to restore the chain.
func New(cfg Config) (*Database, error) {
	ev := cfg.EvHandler
	if ev == nil {
		ev = noEvents
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	rules, err := NewRules(cfg.Genesis)
	if err != nil {
		return nil, err
	}
	if cfg.ProgressEvery > 0 {
		rules.ProgressEvery = cfg.ProgressEvery
	}
	rules.MaxAttempts = cfg.MaxAttempts

	db := Database{
		genesis:    cfg.Genesis,
		rules:      rules,
		serializer: cfg.Serializer,
		now:        now,
		evHandler:  ev,
	}

	if db.serializer == nil {
		return &db, nil
	}

	blocks, err := ReadAll(db.serializer)
	if err != nil {
		return nil, fmt.Errorf("reading blocks: %w", err)
	}

	if len(blocks) > 0 && blocks[0].Hash != cfg.Genesis.Hash {
		return nil, fmt.Errorf("stored genesis hash %s, exp %s", blocks[0].Hash, cfg.Genesis.Hash)
	}

	if err := rules.ValidateChain(blocks); err != nil {
		return nil, fmt.Errorf("validating stored chain: %w", err)
	}

	ev("database: New: loaded blocks[%d]", len(blocks))
	db.blocks = blocks

	return &db, nil
}

// ReadAll walks the serializer and returns every stored block in order.
func ReadAll(serializer Serializer) ([]Block, error) {
	var blocks []Block

	iter := serializer.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// Close closes the storage behind the database.
func (db *Database) Close() error {
	if db.serializer == nil {
		return nil
	}
	return db.serializer.Close()
}

// Rules returns the mining and validation rules of the chain.
func (db *Database) Rules() Rules {
	return db.rules
}

// GenesisParams returns the genesis parameters the chain was built with.
func (db *Database) GenesisParams() genesis.Genesis {
	return db.genesis
}

// Now returns the current time from the configured clock.
func (db *Database) Now() time.Time {
	return db.now()
}

// =============================================================================

// Genesis appends the trusted genesis block. It fails with ErrGenesisExists
// if the chain already holds blocks.
func (db *Database) Genesis() (Block, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.blocks) > 0 {
		return Block{}, ErrGenesisExists
	}

	block := NewGenesisBlock(db.genesis, db.now())

	if err := db.write(block); err != nil {
		return Block{}, err
	}
	db.blocks = append(db.blocks, block)

	db.evHandler("database: Genesis: blk[%s]", block)

	return block, nil
}

// Append validates the block against the current tail and adds it to the
// chain. An invalid block returns ErrRejectedBlock wrapping the reason and
// the chain is left unchanged.
func (db *Database) Append(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.blocks) == 0 {
		return ErrEmptyLedger
	}

	tail := db.blocks[len(db.blocks)-1]
	if err := db.rules.ValidateBlock(block, tail); err != nil {
		db.evHandler("database: Append: rejected: blk[%d]: %s", block.ID, err)
		return fmt.Errorf("%w: %w", ErrRejectedBlock, err)
	}

	if err := db.write(block); err != nil {
		return err
	}
	db.blocks = append(db.blocks, block)

	db.evHandler("database: Append: blk[%s]", block)

	return nil
}

// Resolve applies the fork choice rule between the current chain and the
// remote chain. If the remote chain is chosen it replaces the current chain
// and true is returned. If neither chain is valid ErrNoValidChain is returned.
func (db *Database) Resolve(remote []Block) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	remoteWins, err := RemoteWins(db.rules, db.blocks, remote)
	if err != nil {
		db.evHandler("database: Resolve: ERROR: %s", err)
		return false, err
	}

	if !remoteWins {
		db.evHandler("database: Resolve: keep local: local[%d]: remote[%d]", len(db.blocks), len(remote))
		return false, nil
	}

	blocks := make([]Block, len(remote))
	copy(blocks, remote)

	if err := db.rewrite(blocks); err != nil {

		// Put storage back in line with the chain we are keeping.
		if rerr := db.rewrite(db.blocks); rerr != nil {
			return false, errors.Join(err, fmt.Errorf("restoring storage: %w", rerr))
		}
		return false, err
	}
	db.blocks = blocks

	db.evHandler("database: Resolve: replaced: local[%d]: remote[%d]", len(db.blocks), len(remote))

	return true, nil
}

// =============================================================================

// Len returns the number of blocks in the chain.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// LatestBlock returns the tail of the chain. The zero block and false are
// returned for an empty chain.
func (db *Database) LatestBlock() (Block, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return Block{}, false
	}
	return db.blocks[len(db.blocks)-1], true
}

// Blocks returns a copy of the chain.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)

	return blocks
}

// GetBlock returns the block at the specified number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("%w: %d", ErrBlockNotFound, num)
	}
	return db.blocks[num], nil
}

// BlocksByNumber returns the blocks between from and to inclusive. The
// range is clamped to the end of the chain.
func (db *Database) BlocksByNumber(from uint64, to uint64) []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	l := uint64(len(db.blocks))
	if l == 0 || from >= l || from > to {
		return nil
	}
	if to >= l {
		to = l - 1
	}

	blocks := make([]Block, to-from+1)
	copy(blocks, db.blocks[from:to+1])

	return blocks
}

// =============================================================================

// write stores the block if a serializer is configured.
func (db *Database) write(block Block) error {
	if db.serializer == nil {
		return nil
	}

	if err := db.serializer.Write(block); err != nil {
		return fmt.Errorf("writing blk[%d]: %w", block.ID, err)
	}

	return nil
}

// rewrite replaces everything in storage with the specified blocks.
func (db *Database) rewrite(blocks []Block) error {
	if db.serializer == nil {
		return nil
	}

	if err := db.serializer.Reset(); err != nil {
		return fmt.Errorf("reset storage: %w", err)
	}

	for _, block := range blocks {
		if err := db.serializer.Write(block); err != nil {
			return fmt.Errorf("writing blk[%d]: %w", block.ID, err)
		}
	}

	return nil
}
