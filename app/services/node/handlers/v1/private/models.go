package private

import (
	"github.com/ardanlabs/ledger/business/sys/validate"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// ProposedBlock is the block a peer proposes as the next block of the chain.
type ProposedBlock struct {
	ID        uint64 `json:"id" validate:"gt=0"`
	TimeStamp int64  `json:"timestamp"`
	PrevHash  string `json:"previous_hash" validate:"required,hash"`
	Hash      string `json:"hash" validate:"required,hash"`
	Data      string `json:"data"`
	Nonce     uint64 `json:"nonce"`
}

// Validate checks the data in the model is considered clean.
func (pb ProposedBlock) Validate() error {
	return validate.Check(pb)
}

// toBlock converts the model into a database block.
func (pb ProposedBlock) toBlock() database.Block {
	return database.Block{
		ID:        pb.ID,
		TimeStamp: pb.TimeStamp,
		PrevHash:  pb.PrevHash,
		Hash:      pb.Hash,
		Data:      pb.Data,
		Nonce:     pb.Nonce,
	}
}
