package public

import (
	"github.com/ardanlabs/ledger/business/sys/validate"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// NewData is what we require from clients when submitting a payload.
type NewData struct {
	Data string `json:"data" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (nd NewData) Validate() error {
	return validate.Check(nd)
}

type genesisInfo struct {
	Genesis genesis.Genesis `json:"genesis"`
	Block   database.Block  `json:"block"`
}

type submitted struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}
