package nameseed

import (
	"encoding/binary"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/web3infra/nameseed/schema"
)

// Labelhash is the keccak256 of the bare label, the key the ownership
// ledger indexes registrations by.
func Labelhash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}

// Namehash derives the node for a label under a parent node.
func Namehash(parent common.Hash, label string) common.Hash {
	return crypto.Keccak256Hash(parent.Bytes(), Labelhash(label).Bytes())
}

// SuffixNode computes the node of the top-level suffix from the zero root.
func SuffixNode(suffix string) common.Hash {
	var root common.Hash
	return Namehash(root, suffix)
}

// NormalizeLabel folds a user-supplied name to the canonical label form
// bound by commitments and stored by the ledger.
func NormalizeLabel(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidLabel reports whether a label can be registered: at least three
// characters and no separator.
func ValidLabel(label string) bool {
	if len([]rune(label)) < 3 {
		return false
	}
	return !strings.ContainsRune(label, '.')
}

// ParseSecret decodes the 32-byte hex secret supplied by the caller.
func ParseSecret(s string) (common.Hash, error) {
	by, err := hexutil.Decode(s)
	if err != nil || len(by) != common.HashLength {
		return common.Hash{}, ErrInvalidSecret
	}
	return common.BytesToHash(by), nil
}

// recordsHash folds the deferred resolver records into a single digest so
// the commitment binds them without storing them.
func recordsHash(records []schema.Record) common.Hash {
	if len(records) == 0 {
		return common.Hash{}
	}
	buf := make([]byte, 0, len(records)*2*common.HashLength)
	for _, r := range records {
		buf = append(buf, crypto.Keccak256([]byte(r.Key))...)
		buf = append(buf, crypto.Keccak256([]byte(r.Value))...)
	}
	return crypto.Keccak256Hash(buf)
}

// MakeCommitment deterministically hashes the full registration intent plus
// the caller's secret. Pure; does not touch the ledger. Fails when deferred
// records are supplied without a resolver to receive them.
func MakeCommitment(p schema.CommitmentParams) (common.Hash, error) {
	if len(p.Records) > 0 && p.Resolver == "" {
		return common.Hash{}, ErrResolverRequired
	}
	secret, err := ParseSecret(p.Secret)
	if err != nil {
		return common.Hash{}, err
	}

	var u64 [8]byte
	var u32 [4]byte
	buf := make([]byte, 0, 160)

	buf = append(buf, Labelhash(NormalizeLabel(p.Name)).Bytes()...)
	buf = append(buf, common.HexToAddress(p.Owner).Bytes()...)
	binary.BigEndian.PutUint64(u64[:], uint64(p.Duration))
	buf = append(buf, u64[:]...)
	buf = append(buf, secret.Bytes()...)
	buf = append(buf, common.HexToAddress(p.Resolver).Bytes()...)
	buf = append(buf, recordsHash(p.Records).Bytes()...)
	if p.ReverseRecord {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	binary.BigEndian.PutUint32(u32[:], p.Privileges)
	buf = append(buf, u32[:]...)
	binary.BigEndian.PutUint64(u64[:], uint64(p.PrivilegeExpiry))
	buf = append(buf, u64[:]...)

	return crypto.Keccak256Hash(buf), nil
}
