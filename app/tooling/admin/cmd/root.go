// Package cmd contains the admin app commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage"
	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/spf13/cobra"
)

var (
	storageKind string
	dbPath      string
	genesisFile string
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&storageKind, "storage", "s", storage.KindDisk, "Storage kind: memory|disk|leveldb.")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db-path", "d", "zblock/blocks", "Path to the stored chain.")
	rootCmd.PersistentFlags().StringVarP(&genesisFile, "genesis", "g", "", "Path to the genesis file, built in values when empty.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log ledger events to stderr.")
}

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administrative tasks against a stored ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the admin app.
func Execute(build string) {
	rootCmd.Version = build

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

// =============================================================================

// loadGenesis returns the genesis parameters from the flags.
func loadGenesis() (genesis.Genesis, error) {
	if genesisFile == "" {
		return genesis.Default(), nil
	}
	return genesis.Load(genesisFile)
}

// eventHandler returns the handler ledger events are sent to. Events are
// only logged when verbose is set.
func eventHandler() (database.EventHandler, func(), error) {
	if !verbose {
		return nil, func() {}, nil
	}

	log, err := logger.New("ADMIN", "stderr")
	if err != nil {
		return nil, nil, err
	}

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	return ev, func() { log.Sync() }, nil
}

// openDatabase opens the stored chain at the specified location. The stored
// blocks are validated while loading.
func openDatabase(kind string, path string, ev database.EventHandler) (*database.Database, error) {
	gen, err := loadGenesis()
	if err != nil {
		return nil, err
	}

	strg, err := storage.Open(kind, path)
	if err != nil {
		return nil, err
	}

	db, err := database.New(database.Config{
		Genesis:    gen,
		Serializer: strg,
		EvHandler:  ev,
	})
	if err != nil {
		strg.Close()
		return nil, err
	}

	return db, nil
}

// readChain reads the stored blocks at the specified location without
// validating them.
func readChain(kind string, path string) ([]database.Block, error) {
	strg, err := storage.Open(kind, path)
	if err != nil {
		return nil, err
	}
	defer strg.Close()

	return database.ReadAll(strg)
}

// writeJSON prints the value as indented JSON.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
