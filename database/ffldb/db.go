// Package ffldb implements the database.DB interface on top of leveldb.
package ffldb

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
	"github.com/OrdinateLabs/ordd/database"
	"github.com/OrdinateLabs/ordd/ordutil"
)

// dbType is the database type name for this driver.
const dbType = "ffldb"

var (
	// blockKeyPrefix prefixes keys that map a block hash to the
	// serialized block.
	blockKeyPrefix = []byte("b")

	// heightKeyPrefix prefixes keys that map a big-endian height to the
	// hash of the main-chain block at that height.
	heightKeyPrefix = []byte("i")

	// bestHeightKey stores the highest height at which a block has been
	// stored.
	bestHeightKey = []byte("bestheight")
)

// db wraps a leveldb instance and implements the database.DB interface.  All
// access is performed through the leveldb batch/get primitives; there is no
// additional caching layer since the estimator's read pattern is a short
// suffix of the chain.
type db struct {
	ldb *leveldb.DB
}

// Enforce db implements the database.DB interface.
var _ database.DB = (*db)(nil)

// blockKey returns the key for the serialized block with the given hash.
func blockKey(hash *chainhash.Hash) []byte {
	key := make([]byte, 0, len(blockKeyPrefix)+chainhash.HashSize)
	key = append(key, blockKeyPrefix...)
	return append(key, hash[:]...)
}

// heightKey returns the height index key for the given height.  Heights are
// serialized big endian so the index iterates in height order.
func heightKey(height int32) []byte {
	key := make([]byte, len(heightKeyPrefix)+4)
	copy(key, heightKeyPrefix)
	binary.BigEndian.PutUint32(key[len(heightKeyPrefix):], uint32(height))
	return key
}

// Type returns the database driver type the current database instance was
// created with.
func (d *db) Type() string {
	return dbType
}

// BlockByHash returns the block with the given hash.
func (d *db) BlockByHash(hash *chainhash.Hash) (*ordutil.Block, error) {
	serialized, err := d.ldb.Get(blockKey(hash), nil)
	if err != nil {
		if err == ldberrors.ErrNotFound {
			return nil, database.ErrBlockNotFound
		}
		return nil, err
	}

	block, err := ordutil.NewBlockFromBytes(serialized)
	if err != nil {
		return nil, fmt.Errorf("corrupt block %v: %w", hash, err)
	}
	return block, nil
}

// BlockByHeight returns the main-chain block at the given height.
func (d *db) BlockByHeight(height int32) (*ordutil.Block, error) {
	hashBytes, err := d.ldb.Get(heightKey(height), nil)
	if err != nil {
		if err == ldberrors.ErrNotFound {
			return nil, database.ErrBlockNotFound
		}
		return nil, err
	}

	hash, err := chainhash.NewHash(hashBytes)
	if err != nil {
		return nil, fmt.Errorf("corrupt height index at %d: %w",
			height, err)
	}

	block, err := d.BlockByHash(hash)
	if err != nil {
		return nil, err
	}
	block.SetHeight(height)
	return block, nil
}

// PutBlock stores the passed block and indexes it by hash and height.
func (d *db) PutBlock(block *ordutil.Block) error {
	serialized, err := block.Bytes()
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(block.Hash()), serialized)
	batch.Put(heightKey(block.Height()), block.Hash()[:])

	best, err := d.BestHeight()
	if err != nil && err != database.ErrBlockNotFound {
		return err
	}
	if err == database.ErrBlockNotFound || block.Height() > best {
		var heightBytes [4]byte
		binary.BigEndian.PutUint32(heightBytes[:], uint32(block.Height()))
		batch.Put(bestHeightKey, heightBytes[:])
	}

	return d.ldb.Write(batch, nil)
}

// BestHeight returns the highest height at which a block has been stored.
func (d *db) BestHeight() (int32, error) {
	heightBytes, err := d.ldb.Get(bestHeightKey, nil)
	if err != nil {
		if err == ldberrors.ErrNotFound {
			return 0, database.ErrBlockNotFound
		}
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(heightBytes)), nil
}

// Close cleanly shuts down the database and syncs all data.
func (d *db) Close() error {
	return d.ldb.Close()
}

// OpenDB opens (and creates when necessary) the block database at the given
// path.
func OpenDB(path string) (database.DB, error) {
	log.Infof("Opening block database at %s", path)

	opts := opt.Options{
		Strict: opt.DefaultStrict,
	}
	ldb, err := leveldb.OpenFile(path, &opts)
	if err != nil {
		return nil, err
	}
	return &db{ldb: ldb}, nil
}
