package nameseed

import (
	"encoding/binary"
	"errors"
	"os"
	"path"
	"time"

	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"
)

const (
	boltAllocSize = 8 * 1024 * 1024

	boltName = "nameseed.db"
)

var bucketCommitments = []byte("commitments")

// Store is the bolt-backed commitment ledger: commitment hash -> issuance
// unix timestamp. Entries are cleared only on successful consumption;
// expired entries are left to rot, the accepted tradeoff for an append-only
// reservation log.
type Store struct {
	BoltDb *bolt.DB
}

func NewBoltStore(dirPath string) (*Store, error) {
	if err := os.MkdirAll(dirPath, os.ModePerm); err != nil {
		return nil, err
	}

	boltDB, err := bolt.Open(path.Join(dirPath, boltName), 0660, &bolt.Options{Timeout: 1 * time.Second, InitialMmapSize: 10e6})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	boltDB.AllocSize = boltAllocSize

	kv := &Store{BoltDb: boltDB}

	if err := kv.BoltDb.Update(func(tx *bolt.Tx) error {
		return createBuckets(tx, bucketCommitments)
	}); err != nil {
		return nil, err
	}

	return kv, nil
}

func createBuckets(tx *bolt.Tx, buckets ...[]byte) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.BoltDb.Close()
}

// Get returns the issuance timestamp for hash, 0 when never committed.
func (s *Store) Get(hash common.Hash) (int64, error) {
	var ts int64
	err := s.BoltDb.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(bucketCommitments).Get(hash.Bytes())
		if len(val) == 8 {
			ts = int64(binary.BigEndian.Uint64(val))
		}
		return nil
	})
	return ts, err
}

func (s *Store) Put(hash common.Hash, ts int64) error {
	var val [8]byte
	binary.BigEndian.PutUint64(val[:], uint64(ts))
	return s.BoltDb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCommitments).Put(hash.Bytes(), val[:])
	})
}

func (s *Store) Del(hash common.Hash) error {
	return s.BoltDb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCommitments).Delete(hash.Bytes())
	})
}
