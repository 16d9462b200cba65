package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"carechain/core/hashing"
	"carechain/core/tx"
)

// GenesisPrevHash is the fixed sentinel parent hash of the genesis block.
var GenesisPrevHash = strings.Repeat("0", 64)

// GenesisProducer identifies the system itself as producer of the
// genesis block; no delegate schedule exists at height 0.
const GenesisProducer = "genesis"

var (
	// ErrEmptyGenesisViolation is returned when the genesis shape rules
	// are broken: index 0 without the sentinel parent hash, or a
	// non-genesis block with zero transactions.
	ErrEmptyGenesisViolation = errors.New("genesis shape violation")

	// ErrMerkleMismatch is returned by VerifyInternal when the stored
	// Merkle root disagrees with the one recomputed from transactions.
	ErrMerkleMismatch = errors.New("merkle root mismatch")

	// ErrHashMismatch is returned by VerifyInternal when the stored
	// block hash disagrees with the recomputed header hash.
	ErrHashMismatch = errors.New("block hash mismatch")
)

// Block is one link of the append-only chain. All derived fields
// (MerkleRoot, Hash) are computed at assembly; mutation after append
// is forbidden.
type Block struct {
	Index        uint64           `json:"index"`
	PrevHash     string           `json:"prevHash"`
	Timestamp    time.Time        `json:"timestamp"`
	ProducerID   string           `json:"producerId"`
	Transactions []tx.Transaction `json:"transactions"`
	MerkleRoot   string           `json:"merkleRoot"`
	Hash         string           `json:"hash"`
}

// header is the canonical serialization hashed into Block.Hash. The
// transaction list is covered indirectly through MerkleRoot.
type header struct {
	Index      uint64    `json:"index"`
	PrevHash   string    `json:"prevHash"`
	Timestamp  time.Time `json:"timestamp"`
	ProducerID string    `json:"producerId"`
	MerkleRoot string    `json:"merkleRoot"`
}

// Assemble constructs a block, computing the Merkle root over the
// ordered transaction hashes and the header hash. The transaction
// order is fixed here and never changes afterwards.
func Assemble(index uint64, prevHash string, timestamp time.Time, producerID string, txs []tx.Transaction) (Block, error) {
	if index == 0 && prevHash != GenesisPrevHash {
		return Block{}, fmt.Errorf("%w: genesis must reference the sentinel parent hash", ErrEmptyGenesisViolation)
	}
	if index > 0 && len(txs) == 0 {
		return Block{}, fmt.Errorf("%w: block %d has no transactions", ErrEmptyGenesisViolation, index)
	}

	owned := make([]tx.Transaction, len(txs))
	copy(owned, txs)

	root, err := transactionsRoot(owned)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Index:        index,
		PrevHash:     prevHash,
		Timestamp:    timestamp.UTC(),
		ProducerID:   producerID,
		Transactions: owned,
		MerkleRoot:   root,
	}
	b.Hash, err = b.headerHash()
	if err != nil {
		return Block{}, err
	}
	return b, nil
}

// VerifyInternal recomputes the Merkle root from the block's
// transactions and the header hash from the header fields, comparing
// both against the stored values. This is the check that detects
// tampering with a stored or loaded block.
func (b *Block) VerifyInternal() error {
	root, err := transactionsRoot(b.Transactions)
	if err != nil {
		return err
	}
	if root != b.MerkleRoot {
		return fmt.Errorf("%w: block %d", ErrMerkleMismatch, b.Index)
	}
	h, err := b.headerHash()
	if err != nil {
		return err
	}
	if h != b.Hash {
		return fmt.Errorf("%w: block %d", ErrHashMismatch, b.Index)
	}
	return nil
}

func (b *Block) headerHash() (string, error) {
	return hashing.HashRecord(header{
		Index:      b.Index,
		PrevHash:   b.PrevHash,
		Timestamp:  b.Timestamp,
		ProducerID: b.ProducerID,
		MerkleRoot: b.MerkleRoot,
	})
}

// transactionsRoot recomputes every transaction hash from its payload
// before building the tree, so a mutated payload shows up as a Merkle
// mismatch even when the stored per-transaction hash was patched too.
func transactionsRoot(txs []tx.Transaction) (string, error) {
	hashes := make([]string, len(txs))
	for i, t := range txs {
		h, err := t.ComputeHash()
		if err != nil {
			return "", err
		}
		hashes[i] = h
	}
	return hashing.MerkleRoot(hashes), nil
}

// Serialize encodes the block as JSON.
func (b *Block) Serialize() ([]byte, error) {
	return json.Marshal(b)
}

// Deserialize decodes a JSON-encoded block.
func Deserialize(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
