// Package storage selects the serializer a node keeps its chain in.
package storage

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
)

// Set of storage kinds a node can be configured with.
const (
	KindMemory  = "memory"
	KindDisk    = "disk"
	KindLevelDB = "leveldb"
)

// Open constructs the serializer for the specified kind. The path is not
// used by the memory kind.
func Open(kind string, path string) (database.Serializer, error) {
	switch kind {
	case KindMemory:
		return memory.New()

	case KindDisk:
		return disk.New(path)

	case KindLevelDB:
		return leveldb.New(path)
	}

	return nil, fmt.Errorf("unknown storage kind %q", kind)
}
