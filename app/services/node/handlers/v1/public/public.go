// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/business/web/query"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    *websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gi := genesisInfo{
		Genesis: h.State.RetrieveGenesis(),
	}

	if blocks := h.State.QueryBlocksByNumber(0, 0); len(blocks) == 1 {
		gi.Block = blocks[0]
	}

	return web.Respond(ctx, w, gi, http.StatusOK)
}

// BlocksList returns the blocks between the from and to values. Without
// values the full chain is returned.
func (h Handlers) BlocksList(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	rng, err := query.BlockRange(r)
	if err != nil {
		return err
	}

	if web.Param(r, "from") == "" {
		rng.From, rng.FromLatest = 0, false
	}

	blocks := h.State.QueryBlockRange(rng)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// SubmitData adds a new payload to the mempool to be mined.
func (h Handlers) SubmitData(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nd NewData
	if err := web.Decode(r, &nd); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	entry := h.State.SubmitData(nd.Data)

	h.Log.Infow("submit data", "traceid", v.TraceID, "id", entry.ID, "size", len(nd.Data))

	resp := submitted{
		Status: "data added to mempool",
		ID:     entry.ID,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of payloads waiting to be mined.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}
