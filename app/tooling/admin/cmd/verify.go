package cmd

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate every block of the stored chain.",
	RunE:  verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func verifyRun(cmd *cobra.Command, args []string) error {
	gen, err := loadGenesis()
	if err != nil {
		return err
	}

	blocks, err := readChain(storageKind, dbPath)
	if err != nil {
		return err
	}

	if len(blocks) > 0 && blocks[0].Hash != gen.Hash {
		return fmt.Errorf("stored genesis hash %s, exp %s", blocks[0].Hash, gen.Hash)
	}

	rules, err := database.NewRules(gen)
	if err != nil {
		return err
	}

	if err := rules.ValidateChain(blocks); err != nil {
		return fmt.Errorf("chain invalid: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "chain valid: blocks[%d]\n", len(blocks))

	return nil
}
