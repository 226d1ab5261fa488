package cmd

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/hasher"
	"github.com/spf13/cobra"
)

var (
	hashID         uint64
	hashTimeStamp  int64
	hashPrevHash   string
	hashData       string
	hashNonce      uint64
	hashDifficulty uint
	hashAlgorithm  string
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Print the commitment of the block fields and if it solves the difficulty.",
	RunE:  hashRun,
}

func init() {
	rootCmd.AddCommand(hashCmd)
	hashCmd.Flags().Uint64VarP(&hashID, "id", "i", 0, "Block number.")
	hashCmd.Flags().Int64VarP(&hashTimeStamp, "timestamp", "t", 0, "Block timestamp in unix seconds.")
	hashCmd.Flags().StringVarP(&hashPrevHash, "prev", "p", "", "Hash of the parent block.")
	hashCmd.Flags().StringVarP(&hashData, "data", "", "", "Block data.")
	hashCmd.Flags().Uint64VarP(&hashNonce, "nonce", "n", 0, "Block nonce.")
	hashCmd.Flags().UintVarP(&hashDifficulty, "difficulty", "", 0, "Leading zero bits required, genesis difficulty when zero.")
	hashCmd.Flags().StringVarP(&hashAlgorithm, "algorithm", "a", "", "Digest algorithm, genesis algorithm when empty.")
}

func hashRun(cmd *cobra.Command, args []string) error {
	gen, err := loadGenesis()
	if err != nil {
		return err
	}

	if hashAlgorithm != "" {
		gen.Algorithm = hasher.Algorithm(hashAlgorithm)
	}

	h, err := gen.Hasher()
	if err != nil {
		return err
	}

	difficulty := gen.Difficulty
	if hashDifficulty > 0 {
		difficulty = hashDifficulty
	}

	digest := h.Commit(hashID, hashTimeStamp, hashPrevHash, hashData, hashNonce)

	out := struct {
		Algorithm  hasher.Algorithm `json:"algorithm"`
		Hash       string           `json:"hash"`
		Binary     string           `json:"binary"`
		Difficulty uint             `json:"difficulty"`
		Solved     bool             `json:"solved"`
	}{
		Algorithm:  h.Algorithm(),
		Hash:       hasher.Hex(digest),
		Binary:     hasher.Binary(digest),
		Difficulty: difficulty,
		Solved:     hasher.Solved(difficulty, digest),
	}

	return writeJSON(cmd, out)
}
