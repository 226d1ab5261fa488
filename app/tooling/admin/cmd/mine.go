package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	mineData    string
	mineTimeout time.Duration
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine one block on top of the stored chain.",
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVarP(&mineData, "data", "", "", "Data to carry in the block.")
	mineCmd.Flags().DurationVarP(&mineTimeout, "timeout", "t", time.Minute, "Time allowed to solve the block.")
}

func mineRun(cmd *cobra.Command, args []string) error {
	if mineData == "" {
		return errors.New("data must be provided")
	}

	ev, sync, err := eventHandler()
	if err != nil {
		return err
	}
	defer sync()

	db, err := openDatabase(storageKind, dbPath, ev)
	if err != nil {
		return err
	}
	defer db.Close()

	if db.Len() == 0 {
		if _, err := db.Genesis(); err != nil {
			return err
		}
	}

	latest, _ := db.LatestBlock()

	ctx, cancel := context.WithTimeout(cmd.Context(), mineTimeout)
	defer cancel()

	block, err := database.POW(ctx, db.Rules(), latest, mineData, db.Now(), ev)
	if err != nil {
		return err
	}

	if err := db.Append(block); err != nil {
		return err
	}

	return writeJSON(cmd, block)
}
