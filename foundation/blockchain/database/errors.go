package database

import "errors"

// Set of reasons a block fails validation against its parent. They are
// checked in this order and the first failure is reported.
var (
	ErrInvalidLinkage         = errors.New("previous hash does not match parent hash")
	ErrInsufficientDifficulty = errors.New("block hash does not satisfy the difficulty")
	ErrOutOfSequence          = errors.New("block id is not the next number")
	ErrHashMismatch           = errors.New("block hash does not match block fields")
)

// ErrRejectedBlock is returned when a block can't be appended to the chain.
// The chain is left unchanged and the validation reason is wrapped.
var ErrRejectedBlock = errors.New("block rejected")

// ErrNoValidChain is returned by fork choice when neither candidate chain is
// valid. There is no safe canonical choice and the caller must escalate.
var ErrNoValidChain = errors.New("no valid chain")

// ErrMiningExhausted is returned when a bounded mining search runs out of
// attempts or the nonce space is exhausted. A caller can retry with a new
// timestamp.
var ErrMiningExhausted = errors.New("mining exhausted")

// ErrEmptyLedger is returned when an operation needs a tail block and the
// ledger has no genesis yet.
var ErrEmptyLedger = errors.New("ledger is empty")

// ErrGenesisExists is returned when genesis is requested on a ledger that
// already holds blocks.
var ErrGenesisExists = errors.New("genesis block already exists")

// ErrBlockNotFound is returned when a block number is not part of the chain.
var ErrBlockNotFound = errors.New("block not found")
