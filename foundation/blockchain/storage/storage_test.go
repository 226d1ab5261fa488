package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Serializers(t *testing.T) {
	type table struct {
		name string
		open func(t *testing.T) database.Serializer
	}

	tt := []table{
		{
			name: "memory",
			open: func(t *testing.T) database.Serializer {
				s, err := memory.New()
				if err != nil {
					t.Fatalf("\t%s\tShould be able to open memory storage: %v", failed, err)
				}
				return s
			},
		},
		{
			name: "disk",
			open: func(t *testing.T) database.Serializer {
				s, err := disk.New(filepath.Join(t.TempDir(), "blocks"))
				if err != nil {
					t.Fatalf("\t%s\tShould be able to open disk storage: %v", failed, err)
				}
				return s
			},
		},
		{
			name: "leveldb",
			open: func(t *testing.T) database.Serializer {
				s, err := leveldb.New(filepath.Join(t.TempDir(), "blocks.db"))
				if err != nil {
					t.Fatalf("\t%s\tShould be able to open leveldb storage: %v", failed, err)
				}
				return s
			},
		},
	}

	blocks := []database.Block{
		{ID: 0, TimeStamp: 100, PrevHash: "genesis", Hash: "00aa", Data: "genesis!", Nonce: 2836},
		{ID: 1, TimeStamp: 101, PrevHash: "00aa", Hash: "00bb", Data: "one", Nonce: 1},
		{ID: 2, TimeStamp: 102, PrevHash: "00bb", Hash: "00cc", Data: "two", Nonce: 2},
	}

	t.Log("Given the need to store and read back the chain.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				s := tst.open(t)
				defer s.Close()

				for _, block := range blocks {
					if err := s.Write(block); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to write blk[%d]: %v", failed, testID, block.ID, err)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould be able to write the blocks.", success, testID)

				got, err := database.ReadAll(s)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to read all blocks: %v", failed, testID, err)
				}
				if len(got) != len(blocks) {
					t.Fatalf("\t%s\tTest %d:\tShould read %d blocks, got %d.", failed, testID, len(blocks), len(got))
				}
				for i := range blocks {
					if got[i] != blocks[i] {
						t.Logf("\t%s\tTest %d:\tgot: %+v", failed, testID, got[i])
						t.Logf("\t%s\tTest %d:\texp: %+v", failed, testID, blocks[i])
						t.Fatalf("\t%s\tTest %d:\tShould read back the same block.", failed, testID)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould read back the blocks in order.", success, testID)

				blk, err := s.GetBlock(1)
				if err != nil || blk != blocks[1] {
					t.Fatalf("\t%s\tTest %d:\tShould get block 1 by number: %v", failed, testID, err)
				}
				if _, err := s.GetBlock(10); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould fail to get a missing block.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get blocks by number.", success, testID)

				if err := s.Write(database.Block{ID: 7}); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould refuse an out of order block.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould refuse an out of order block.", success, testID)

				if err := s.Reset(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to reset: %v", failed, testID, err)
				}
				got, err = database.ReadAll(s)
				if err != nil || len(got) != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould have no blocks after reset, got %d: %v", failed, testID, len(got), err)
				}
				if err := s.Write(blocks[0]); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould accept genesis after reset: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould start over after reset.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Open(t *testing.T) {
	t.Log("Given the need to open storage by kind.")
	{
		for testID, kind := range []string{storage.KindMemory, storage.KindDisk, storage.KindLevelDB} {
			s, err := storage.Open(kind, filepath.Join(t.TempDir(), kind))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open %s storage: %v", failed, testID, kind, err)
			}
			s.Close()
			t.Logf("\t%s\tTest %d:\tShould be able to open %s storage.", success, testID, kind)
		}

		if _, err := storage.Open("tape", ""); err == nil {
			t.Fatalf("\t%s\tShould not be able to open an unknown kind.", failed)
		}
		t.Logf("\t%s\tShould not be able to open an unknown kind.", success)
	}
}
