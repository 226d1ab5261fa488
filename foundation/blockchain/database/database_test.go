package database_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/hasher"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// difficulty used by these tests, enough work to be meaningful and fast.
const difficulty = 8

// now is the fixed clock used by these tests.
func now() time.Time {
	return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func newGenesis() genesis.Genesis {
	gen := genesis.Default()
	gen.Difficulty = difficulty
	return gen
}

func newRules(t *testing.T) database.Rules {
	t.Helper()

	rules, err := database.NewRules(newGenesis())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the rules: %v", failed, err)
	}

	return rules
}

func newDatabase(t *testing.T, serializer database.Serializer) *database.Database {
	t.Helper()

	db, err := database.New(database.Config{
		Genesis:    newGenesis(),
		Serializer: serializer,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a database: %v", failed, err)
	}

	if db.Len() == 0 {
		if _, err := db.Genesis(); err != nil {
			t.Fatalf("\t%s\tShould be able to add the genesis block: %v", failed, err)
		}
	}

	return db
}

// mineBlocks mines and appends n blocks with payloads using the prefix.
func mineBlocks(t *testing.T, db *database.Database, n int, prefix string) {
	t.Helper()

	for i := 0; i < n; i++ {
		tail, _ := db.LatestBlock()

		block, err := database.POW(context.Background(), db.Rules(), tail, fmt.Sprintf("%s-%d", prefix, i), now(), nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}

		if err := db.Append(block); err != nil {
			t.Fatalf("\t%s\tShould be able to append blk[%d]: %v", failed, block.ID, err)
		}
	}
}

// =============================================================================

func Test_MineDeterminism(t *testing.T) {
	rules := newRules(t)

	t.Log("Given the need to mine the same block twice.")
	{
		ctx := context.Background()

		n1, h1, err := rules.Mine(ctx, 1, 1700000000, genesis.Hash, "payload", nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine: %v", failed, err)
		}
		n2, h2, err := rules.Mine(ctx, 1, 1700000000, genesis.Hash, "payload", nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine again: %v", failed, err)
		}

		if n1 != n2 || h1 != h2 {
			t.Logf("\t%s\tgot: %d %s", failed, n2, h2)
			t.Logf("\t%s\texp: %d %s", failed, n1, h1)
			t.Fatalf("\t%s\tShould get the same nonce and hash.", failed)
		}
		t.Logf("\t%s\tShould get the same nonce and hash.", success)

		bin := hasher.Binary(mustHex(t, h1))
		if !strings.HasPrefix(bin, strings.Repeat("0", difficulty)) {
			t.Fatalf("\t%s\tShould get a hash with %d leading zero bits: %s", failed, difficulty, bin)
		}
		t.Logf("\t%s\tShould get a hash satisfying the difficulty.", success)

		if h1 != rules.Commit(1, 1700000000, genesis.Hash, "payload", n1) {
			t.Fatalf("\t%s\tShould get the hash of the fields with the found nonce.", failed)
		}
		t.Logf("\t%s\tShould get the hash of the fields with the found nonce.", success)

		for nonce := uint64(0); nonce < n1; nonce++ {
			digest := rules.Hasher.Commit(1, 1700000000, genesis.Hash, "payload", nonce)
			if hasher.Solved(difficulty, digest) {
				t.Fatalf("\t%s\tShould find the first solving nonce, %d also solves.", failed, nonce)
			}
		}
		t.Logf("\t%s\tShould find the first solving nonce.", success)
	}
}

func Test_MineProgress(t *testing.T) {
	rules := newRules(t)
	rules.Difficulty = 12
	rules.ProgressEvery = 10

	t.Log("Given the need to observe mining progress.")
	{
		var events []string
		ev := func(v string, args ...any) {
			events = append(events, fmt.Sprintf(v, args...))
		}

		nonce, _, err := rules.Mine(context.Background(), 1, 1, "prev", "data", ev)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine: %v", failed, err)
		}

		var progress int
		for _, e := range events {
			if strings.Contains(e, "attempts[") {
				progress++
			}
		}

		// One event every ten failed attempts plus the final count.
		if exp := int(nonce/10) + 1; progress != exp {
			t.Fatalf("\t%s\tShould see progress events, got %d, exp %d.", failed, progress, exp)
		}
		if !strings.Contains(events[len(events)-1], "completed") {
			t.Fatalf("\t%s\tShould see a completion event last.", failed)
		}
		t.Logf("\t%s\tShould see progress and completion events.", success)
	}
}

func Test_MineCancelAndExhaust(t *testing.T) {
	t.Log("Given the need to stop a mining search.")
	{
		rules := newRules(t)
		rules.Difficulty = 256

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, _, err := rules.Mine(ctx, 1, 1, "prev", "data", nil); !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould get context.Canceled, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould stop when the context is cancelled.", success)

		ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if _, _, err := rules.Mine(ctx, 1, 1, "prev", "data", nil); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("\t%s\tShould get context.DeadlineExceeded, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould stop an in-flight search when the deadline passes.", success)

		rules.MaxAttempts = 10
		if _, _, err := rules.Mine(context.Background(), 1, 1, "prev", "data", nil); !errors.Is(err, database.ErrMiningExhausted) {
			t.Fatalf("\t%s\tShould get ErrMiningExhausted, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould stop when the attempts are exhausted.", success)
	}
}

func Test_ValidateBlock(t *testing.T) {
	db := newDatabase(t, nil)
	mineBlocks(t, db, 1, "valid")

	rules := db.Rules()
	blocks := db.Blocks()
	prev, block := blocks[0], blocks[1]

	zeros := strings.Repeat("0", 64)

	type table struct {
		name   string
		mutate func(b database.Block) database.Block
		exp    error
	}

	tt := []table{
		{name: "valid", mutate: func(b database.Block) database.Block { return b }},
		{name: "linkage", mutate: func(b database.Block) database.Block { b.PrevHash = zeros; return b }, exp: database.ErrInvalidLinkage},
		{name: "difficulty", mutate: func(b database.Block) database.Block { b.Hash = strings.Repeat("f", 64); return b }, exp: database.ErrInsufficientDifficulty},
		{name: "bad-hex", mutate: func(b database.Block) database.Block { b.Hash = "not-hex"; return b }, exp: database.ErrInsufficientDifficulty},
		{name: "sequence", mutate: func(b database.Block) database.Block { b.ID = 5; return b }, exp: database.ErrOutOfSequence},
		{name: "tamper-data", mutate: func(b database.Block) database.Block { b.Data = "forged"; return b }, exp: database.ErrHashMismatch},
		{name: "tamper-timestamp", mutate: func(b database.Block) database.Block { b.TimeStamp++; return b }, exp: database.ErrHashMismatch},
		{name: "tamper-nonce", mutate: func(b database.Block) database.Block { b.Nonce++; return b }, exp: database.ErrHashMismatch},
		{name: "tamper-hash", mutate: func(b database.Block) database.Block { b.Hash = zeros; return b }, exp: database.ErrHashMismatch},
	}

	t.Log("Given the need to validate a block against its parent.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				err := rules.ValidateBlock(tst.mutate(block), prev)

				switch tst.exp {
				case nil:
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould accept the block: %v", failed, testID, err)
					}
				default:
					if !errors.Is(err, tst.exp) {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould reject the block for the right reason.", failed, testID)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected outcome: %v", success, testID, tst.exp)

				if rules.IsBlockValid(tst.mutate(block), prev) != (tst.exp == nil) {
					t.Fatalf("\t%s\tTest %d:\tShould agree with the boolean view.", failed, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_ValidateChain(t *testing.T) {
	db := newDatabase(t, nil)
	mineBlocks(t, db, 4, "chain")

	rules := db.Rules()
	blocks := db.Blocks()

	t.Log("Given the need to validate a whole chain.")
	{
		if !rules.IsChainValid(nil) {
			t.Fatalf("\t%s\tShould treat an empty chain as valid.", failed)
		}
		t.Logf("\t%s\tShould treat an empty chain as valid.", success)

		if !rules.IsChainValid(blocks[:1]) {
			t.Fatalf("\t%s\tShould treat a genesis only chain as valid.", failed)
		}

		// The genesis hash carries sixteen leading zero bits.
		strict := rules
		strict.Difficulty = 17
		if hasher.SolvedHex(strict.Difficulty, blocks[0].Hash) || !strict.IsChainValid(blocks[:1]) {
			t.Fatalf("\t%s\tShould never validate genesis itself against the difficulty.", failed)
		}
		t.Logf("\t%s\tShould exempt the genesis block from validation.", success)

		if err := rules.ValidateChain(blocks); err != nil {
			t.Fatalf("\t%s\tShould treat a mined chain as valid: %v", failed, err)
		}
		t.Logf("\t%s\tShould treat a mined chain as valid.", success)

		for i := 1; i < len(blocks); i++ {
			bad := make([]database.Block, len(blocks))
			copy(bad, blocks)
			bad[i].Data = "forged"

			if rules.IsChainValid(bad) {
				t.Fatalf("\t%s\tShould reject the chain with blk[%d] forged.", failed, i)
			}
			if !rules.IsChainValid(bad[:i]) {
				t.Fatalf("\t%s\tShould accept the prefix before blk[%d].", failed, i)
			}
		}
		t.Logf("\t%s\tShould reject a chain with any invalid block.", success)
	}
}

func Test_GenesisAndAppend(t *testing.T) {
	t.Log("Given the need to grow the ledger one block at a time.")
	{
		db, err := database.New(database.Config{Genesis: newGenesis(), Now: now})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a database: %v", failed, err)
		}

		if err := db.Append(database.Block{ID: 1}); !errors.Is(err, database.ErrEmptyLedger) {
			t.Fatalf("\t%s\tShould get ErrEmptyLedger, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould refuse to append to an empty ledger.", success)

		gb, err := db.Genesis()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to add the genesis block: %v", failed, err)
		}
		if gb.ID != 0 || gb.PrevHash != genesis.PrevHash || gb.Hash != genesis.Hash || gb.TimeStamp != now().Unix() {
			t.Fatalf("\t%s\tShould get the fixed genesis block, got %+v.", failed, gb)
		}
		t.Logf("\t%s\tShould get the fixed genesis block.", success)

		if _, err := db.Genesis(); !errors.Is(err, database.ErrGenesisExists) {
			t.Fatalf("\t%s\tShould get ErrGenesisExists, got %v.", failed, err)
		}
		if db.Len() != 1 {
			t.Fatalf("\t%s\tShould still have one block, got %d.", failed, db.Len())
		}
		t.Logf("\t%s\tShould refuse a second genesis.", success)

		mineBlocks(t, db, 2, "grow")

		tail, _ := db.LatestBlock()
		block, err := database.POW(context.Background(), db.Rules(), tail, "next", now(), nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine: %v", failed, err)
		}

		linkage := block
		linkage.PrevHash = genesis.Hash
		if err := db.Append(linkage); !errors.Is(err, database.ErrRejectedBlock) || !errors.Is(err, database.ErrInvalidLinkage) {
			t.Fatalf("\t%s\tShould reject a block with broken linkage, got %v.", failed, err)
		}

		sequence, err := database.POW(context.Background(), db.Rules(), database.Block{ID: tail.ID + 1, Hash: tail.Hash}, "skip", now(), nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine: %v", failed, err)
		}
		if err := db.Append(sequence); !errors.Is(err, database.ErrOutOfSequence) {
			t.Fatalf("\t%s\tShould reject an out of sequence block, got %v.", failed, err)
		}

		if db.Len() != 3 {
			t.Fatalf("\t%s\tShould leave the chain unchanged, got %d blocks.", failed, db.Len())
		}
		t.Logf("\t%s\tShould reject invalid blocks without changing the chain.", success)

		if err := db.Append(block); err != nil {
			t.Fatalf("\t%s\tShould append the valid block: %v", failed, err)
		}
		if got, _ := db.LatestBlock(); got != block {
			t.Fatalf("\t%s\tShould have the valid block as the tail.", failed)
		}
		t.Logf("\t%s\tShould append a valid block.", success)

		if blocks := db.BlocksByNumber(1, 100); len(blocks) != 3 || blocks[0].ID != 1 {
			t.Fatalf("\t%s\tShould get blocks by number clamped to the chain, got %d.", failed, len(blocks))
		}
		if _, err := db.GetBlock(10); !errors.Is(err, database.ErrBlockNotFound) {
			t.Fatalf("\t%s\tShould get ErrBlockNotFound, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould query blocks by number.", success)
	}
}

func Test_ChooseChain(t *testing.T) {
	local := newDatabase(t, nil)
	mineBlocks(t, local, 2, "local")

	remote := newDatabase(t, nil)
	mineBlocks(t, remote, 4, "remote")

	same := newDatabase(t, nil)
	mineBlocks(t, same, 2, "same")

	rules := local.Rules()

	forge := func(blocks []database.Block) []database.Block {
		bad := make([]database.Block, len(blocks))
		copy(bad, blocks)
		bad[1].Data = "forged"
		return bad
	}

	type table struct {
		name   string
		local  []database.Block
		remote []database.Block
		exp    []database.Block
		err    error
	}

	tt := []table{
		{name: "remote-longer", local: local.Blocks(), remote: remote.Blocks(), exp: remote.Blocks()},
		{name: "local-longer", local: remote.Blocks(), remote: local.Blocks(), exp: remote.Blocks()},
		{name: "tie-favors-local", local: local.Blocks(), remote: same.Blocks(), exp: local.Blocks()},
		{name: "remote-invalid", local: local.Blocks(), remote: forge(remote.Blocks()), exp: local.Blocks()},
		{name: "local-invalid", local: forge(remote.Blocks()), remote: local.Blocks(), exp: local.Blocks()},
		{name: "both-invalid", local: forge(local.Blocks()), remote: forge(remote.Blocks()), err: database.ErrNoValidChain},
	}

	t.Log("Given the need to choose between two chains.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				got, err := database.ChooseChain(rules, tst.local, tst.remote)
				if tst.err != nil {
					if !errors.Is(err, tst.err) || got != nil {
						t.Fatalf("\t%s\tTest %d:\tShould get %v and no chain, got %v.", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get %v.", success, testID, tst.err)
					return
				}

				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to choose: %v", failed, testID, err)
				}
				if len(got) != len(tst.exp) || got[len(got)-1] != tst.exp[len(tst.exp)-1] {
					t.Fatalf("\t%s\tTest %d:\tShould choose the expected chain.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould choose the expected chain.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Resolve(t *testing.T) {
	t.Log("Given the need to resolve a fork against a peer's chain.")
	{
		storage, err := memory.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open storage: %v", failed, err)
		}

		local := newDatabase(t, storage)
		mineBlocks(t, local, 2, "local")

		remote := newDatabase(t, nil)
		mineBlocks(t, remote, 4, "remote")

		replaced, err := local.Resolve(remote.Blocks()[:2])
		if err != nil || replaced {
			t.Fatalf("\t%s\tShould keep the longer local chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould keep the longer local chain.", success)

		replaced, err = local.Resolve(remote.Blocks())
		if err != nil || !replaced {
			t.Fatalf("\t%s\tShould replace the chain with the longer remote chain: %v", failed, err)
		}
		if local.Len() != 5 {
			t.Fatalf("\t%s\tShould have the remote length, got %d.", failed, local.Len())
		}
		t.Logf("\t%s\tShould replace the chain with the longer remote chain.", success)

		stored, err := database.ReadAll(storage)
		if err != nil || len(stored) != 5 || stored[4] != remote.Blocks()[4] {
			t.Fatalf("\t%s\tShould rewrite storage with the chosen chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould rewrite storage with the chosen chain.", success)

		restored := newDatabase(t, storage)
		if restored.Len() != 5 {
			t.Fatalf("\t%s\tShould restore the chain from storage, got %d.", failed, restored.Len())
		}
		t.Logf("\t%s\tShould restore the chain from storage.", success)

		mineBlocks(t, local, 1, "after")
		_, err = local.Resolve([]database.Block{})
		if err != nil || local.Len() != 6 {
			t.Fatalf("\t%s\tShould keep the local chain against an empty one: %v", failed, err)
		}
		t.Logf("\t%s\tShould keep the local chain against an empty one.", success)
	}
}

func Test_ForeignGenesis(t *testing.T) {
	t.Log("Given the need to refuse storage holding another chain.")
	{
		storage, err := memory.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open storage: %v", failed, err)
		}
		if err := storage.Write(database.Block{ID: 0, Hash: "ffff", PrevHash: "genesis"}); err != nil {
			t.Fatalf("\t%s\tShould be able to write a block: %v", failed, err)
		}

		if _, err := database.New(database.Config{Genesis: newGenesis(), Serializer: storage}); err == nil {
			t.Fatalf("\t%s\tShould refuse a foreign genesis block.", failed)
		}
		t.Logf("\t%s\tShould refuse a foreign genesis block.", success)
	}
}

func Test_UnknownAlgorithm(t *testing.T) {
	t.Log("Given the need to refuse genesis parameters with an unknown digest.")
	{
		gen := newGenesis()
		gen.Algorithm = "sha265"

		if _, err := database.NewRules(gen); !errors.Is(err, hasher.ErrUnknownAlgorithm) {
			t.Fatalf("\t%s\tShould get ErrUnknownAlgorithm from the rules, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould get ErrUnknownAlgorithm from the rules.", success)

		if _, err := database.New(database.Config{Genesis: gen, Now: now}); !errors.Is(err, hasher.ErrUnknownAlgorithm) {
			t.Fatalf("\t%s\tShould refuse to construct the database, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould refuse to construct the database.", success)
	}
}

// =============================================================================

func mustHex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hasher.FromHex(s)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to decode %s: %v", failed, s, err)
	}
	return b
}
