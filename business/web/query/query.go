// Package query provides support for reading query values out of requests.
package query

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/web"
)

// Latest is the word a range end can take for the tail of the chain.
const Latest = "latest"

// BlockRange reads the from and to route parameters. A missing value or
// the word latest marks that end of the range as the tail of the chain.
func BlockRange(r *http.Request) (state.BlockRange, error) {
	var rng state.BlockRange
	var err error

	if rng.From, rng.FromLatest, err = blockNumber(web.Param(r, "from")); err != nil {
		return state.BlockRange{}, err
	}

	if rng.To, rng.ToLatest, err = blockNumber(web.Param(r, "to")); err != nil {
		return state.BlockRange{}, err
	}

	if !rng.FromLatest && !rng.ToLatest && rng.From > rng.To {
		return state.BlockRange{}, errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	return rng, nil
}

func blockNumber(s string) (uint64, bool, error) {
	if s == "" || s == Latest {
		return 0, true, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false, errs.NewTrusted(fmt.Errorf("invalid block number %q", s), http.StatusBadRequest)
	}

	return n, false, nil
}
