package cmd

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	remoteKind string
	remotePath string
	write      bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Apply the fork choice rule between the stored chain and a remote chain.",
	RunE:  resolveRun,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVarP(&remoteKind, "remote-storage", "", "disk", "Storage kind of the remote chain.")
	resolveCmd.Flags().StringVarP(&remotePath, "remote-path", "r", "", "Path to the remote chain.")
	resolveCmd.Flags().BoolVarP(&write, "write", "w", false, "Replace the stored chain when the remote chain wins.")
}

func resolveRun(cmd *cobra.Command, args []string) error {
	if remotePath == "" {
		return errors.New("remote path must be provided")
	}

	gen, err := loadGenesis()
	if err != nil {
		return err
	}

	local, err := readChain(storageKind, dbPath)
	if err != nil {
		return fmt.Errorf("reading local chain: %w", err)
	}

	remote, err := readChain(remoteKind, remotePath)
	if err != nil {
		return fmt.Errorf("reading remote chain: %w", err)
	}

	if len(remote) > 0 && remote[0].Hash != gen.Hash {
		return fmt.Errorf("remote genesis hash %s, exp %s", remote[0].Hash, gen.Hash)
	}

	rules, err := database.NewRules(gen)
	if err != nil {
		return err
	}

	remoteWins, err := database.RemoteWins(rules, local, remote)
	if err != nil {
		return err
	}

	winner := "local"
	if remoteWins {
		winner = "remote"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "chosen: %s: local[%d]: remote[%d]\n", winner, len(local), len(remote))

	if !write || !remoteWins {
		return nil
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

	if _, err := db.Resolve(remote); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "stored chain replaced: blocks[%d]\n", db.Len())

	return nil
}
