package database

import (
	"errors"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
	"github.com/OrdinateLabs/ordd/ordutil"
)

// ErrBlockNotFound is returned when the requested block is not present in
// the store, either because it was never connected or because the store was
// pruned.
var ErrBlockNotFound = errors.New("block not found")

// DB provides a generic interface that is used to store ordinate blocks and
// related metadata.  This interface is intended to be agnostic to the actual
// mechanism used for backend data storage.
//
// Blocks are keyed both by hash and by height in the main chain.  The height
// index and the best height marker are maintained by PutBlock, so readers
// can iterate the recent suffix of the chain without consulting any other
// component.
type DB interface {
	// Type returns the database driver type the current database instance
	// was created with.
	Type() string

	// BlockByHash returns the block with the given hash.  It returns
	// ErrBlockNotFound when no such block is stored.
	BlockByHash(hash *chainhash.Hash) (*ordutil.Block, error)

	// BlockByHeight returns the main-chain block at the given height.  It
	// returns ErrBlockNotFound when no block is stored at that height.
	BlockByHeight(height int32) (*ordutil.Block, error)

	// PutBlock stores the passed block and indexes it by hash and by its
	// height.  Storing a block at a height that is already occupied
	// overwrites the height index entry, which is exactly what a reorg
	// needs.
	PutBlock(block *ordutil.Block) error

	// BestHeight returns the highest height at which a block has been
	// stored.  It returns ErrBlockNotFound when the store is empty.
	BestHeight() (int32, error)

	// Close cleanly shuts down the database and syncs all data.
	Close() error
}
