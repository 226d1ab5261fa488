// Package hasher provides the commitment function that binds the fields of a
// block to a digest and the proof of work predicate evaluated over that
// digest.
package hasher

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Set of digest algorithms a chain can be configured with.
const (
	SHA256    Algorithm = "sha256"
	Keccak256 Algorithm = "keccak256"
)

// DigestLength is the size in bytes of every supported digest.
const DigestLength = 32

// ErrUnknownAlgorithm is returned when a hasher is requested for an
// algorithm this package does not support.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Algorithm names the digest function used to commit a block.
type Algorithm string

// =============================================================================

// Fields represents the values of a block that are committed to by the hash.
// The field order and json tags are part of the protocol. Changing them will
// produce different hashes for the same logical block.
type Fields struct {
	ID           uint64 `json:"id"`
	PreviousHash string `json:"previous_hash"`
	Data         string `json:"data"`
	TimeStamp    int64  `json:"timestamp"`
	Nonce        uint64 `json:"nonce"`
}

// Canonical returns the byte exact serialization of the fields that is fed
// into the digest function.
func (f Fields) Canonical() ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}

	// The encoder always terminates the value with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// =============================================================================

// Hasher computes block commitments using a configured digest algorithm.
type Hasher struct {
	algorithm Algorithm
	digest    func([]byte) []byte
}

// New constructs a hasher for the specified algorithm. An empty algorithm
// selects SHA256.
func New(algorithm Algorithm) (Hasher, error) {
	switch algorithm {
	case "", SHA256:
		return Hasher{algorithm: SHA256, digest: sha256Digest}, nil

	case Keccak256:
		return Hasher{algorithm: Keccak256, digest: keccak256Digest}, nil
	}

	return Hasher{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
}

// Default returns the SHA256 hasher used by the protocol.
func Default() Hasher {
	return Hasher{algorithm: SHA256, digest: sha256Digest}
}

// Algorithm returns the digest algorithm this hasher uses.
func (h Hasher) Algorithm() Algorithm {
	if h.algorithm == "" {
		return SHA256
	}
	return h.algorithm
}

// Commit returns the digest of the specified block fields.
func (h Hasher) Commit(id uint64, timestamp int64, previousHash string, data string, nonce uint64) []byte {
	return h.CommitFields(Fields{
		ID:           id,
		PreviousHash: previousHash,
		Data:         data,
		TimeStamp:    timestamp,
		Nonce:        nonce,
	})
}

// CommitFields returns the digest of the specified block fields.
func (h Hasher) CommitFields(f Fields) []byte {
	data, err := f.Canonical()
	if err != nil {

		// Fields only holds strings and integers so this can't happen.
		panic(fmt.Sprintf("hasher: canonical encoding: %s", err))
	}

	digest := h.digest
	if digest == nil {
		digest = sha256Digest
	}

	return digest(data)
}

// =============================================================================

// Commit returns the SHA256 digest of the specified block fields.
func Commit(id uint64, timestamp int64, previousHash string, data string, nonce uint64) []byte {
	return Default().Commit(id, timestamp, previousHash, data, nonce)
}

// Hex returns the lowercase hex encoding of the digest without a prefix.
// This is the external representation of a block hash.
func Hex(digest []byte) string {
	return common.Bytes2Hex(digest)
}

// FromHex decodes a hash in its external representation back to its bytes.
func FromHex(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty hash")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("hash %q: unexpected 0x prefix", s)
	}

	return hexutil.Decode("0x" + s)
}

// Binary renders the digest as a string of bits, each byte written as its
// full eight bit pattern.
func Binary(digest []byte) string {
	var b strings.Builder
	b.Grow(len(digest) * 8)

	for _, c := range digest {
		fmt.Fprintf(&b, "%08b", c)
	}

	return b.String()
}

// Solved reports if the binary expansion of the digest starts with the
// specified number of zero bits.
func Solved(difficulty uint, digest []byte) bool {
	if difficulty > uint(len(digest))*8 {
		return false
	}

	var zeros uint
	for _, c := range digest {
		if zeros >= difficulty {
			return true
		}

		if c != 0 {
			zeros += uint(bits.LeadingZeros8(c))
			return zeros >= difficulty
		}

		zeros += 8
	}

	return zeros >= difficulty
}

// SolvedHex decodes the hash and checks it against the difficulty. A hash
// that can't be decoded never satisfies the difficulty.
func SolvedHex(difficulty uint, hash string) bool {
	digest, err := FromHex(hash)
	if err != nil {
		return false
	}

	return Solved(difficulty, digest)
}

// =============================================================================

func sha256Digest(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func keccak256Digest(data []byte) []byte {
	return crypto.Keccak256(data)
}
