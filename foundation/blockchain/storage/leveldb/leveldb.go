// Package leveldb implements the ability to read and write blocks to a
// LevelDB database.
package leveldb

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Set of keys used to store the chain.
const (
	blockPrefix = "block_"
	heightKey   = "height_latest"
)

// LevelDB represents the serialization implementation for reading and storing
// blocks in a LevelDB database. Each block is stored as json under a key
// formed from its number. This implements the database.Serializer interface.
type LevelDB struct {
	db *leveldb.DB
}

// New opens or creates the LevelDB database at the specified path.
func New(dbPath string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb %s: %w", dbPath, err)
	}

	return &LevelDB{db: db}, nil
}

// Close closes the LevelDB database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Write takes the specified database block and stores it. The block must be
// the next number after the latest stored block.
func (l *LevelDB) Write(block database.Block) error {
	next := uint64(0)
	if latest, ok, err := l.latest(); err != nil {
		return err
	} else if ok {
		next = latest + 1
	}

	if block.ID != next {
		return fmt.Errorf("block is out of order, got %d, exp %d", block.ID, next)
	}

	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	// The block and the height marker are written together.
	batch := new(leveldb.Batch)
	batch.Put(blockKey(block.ID), data)
	batch.Put([]byte(heightKey), []byte(strconv.FormatUint(block.ID, 10)))

	return l.db.Write(batch, nil)
}

// GetBlock locates and returns the contents of the specified block by number.
func (l *LevelDB) GetBlock(num uint64) (database.Block, error) {
	data, err := l.db.Get(blockKey(num), nil)
	if err != nil {
		return database.Block{}, err
	}

	var block database.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return database.Block{}, fmt.Errorf("decoding blk[%d]: %w", num, err)
	}

	return block, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with the genesis block.
func (l *LevelDB) ForEach() database.Iterator {
	return &levelDBIterator{storage: l}
}

// Reset removes every block from the database.
func (l *LevelDB) Reset() error {
	batch := new(leveldb.Batch)

	iter := l.db.NewIterator(util.BytesPrefix([]byte(blockPrefix)), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}

	batch.Delete([]byte(heightKey))

	return l.db.Write(batch, nil)
}

// latest returns the number of the latest stored block.
func (l *LevelDB) latest() (uint64, bool, error) {
	v, err := l.db.Get([]byte(heightKey), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}

	height, err := strconv.ParseUint(string(v), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parsing height: %w", err)
	}

	return height, true, nil
}

// blockKey forms the key for the specified block number.
func blockKey(num uint64) []byte {
	return []byte(blockPrefix + strconv.FormatUint(num, 10))
}

// =============================================================================

// levelDBIterator represents the iteration implementation for walking
// through and reading blocks in order. This implements the database
// Iterator interface.
type levelDBIterator struct {
	storage *LevelDB // Access to the storage API.
	current uint64   // Current block number being iterated over.
	eoc     bool     // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from the database.
func (li *levelDBIterator) Next() (database.Block, error) {
	if li.eoc {
		return database.Block{}, errors.New("end of chain")
	}

	block, err := li.storage.GetBlock(li.current)
	if errors.Is(err, leveldb.ErrNotFound) {
		li.eoc = true
	}
	li.current++

	return block, err
}

// Done returns the end of chain value.
func (li *levelDBIterator) Done() bool {
	return li.eoc
}
