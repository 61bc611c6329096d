package blockchain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
	"github.com/OrdinateLabs/ordd/database"
	"github.com/OrdinateLabs/ordd/ordutil"
)

// Config is a descriptor which specifies the blockchain instance
// configuration.
type Config struct {
	// DB defines the database which houses the blocks.  It is required.
	DB database.DB
}

// BlockChain provides functions for working with the ordinate block chain.
// It includes functionality such as rejecting blocks that do not extend the
// current tip, best chain tracking, and notification callbacks for connect
// and disconnect events.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	db database.DB

	// chainLock protects concurrent access to the chain state below.
	chainLock sync.RWMutex

	// bestChain tracks the current active chain as a flat view from the
	// genesis block to the tip.
	bestChain *chainView

	// The notifications field stores a slice of callbacks to be executed
	// on certain blockchain events.
	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// New returns a BlockChain instance using the provided configuration details.
// The best chain view is rebuilt from the database so a restarted node
// resumes where it stopped.
func New(config *Config) (*BlockChain, error) {
	if config.DB == nil {
		return nil, errors.New("blockchain.New database is nil")
	}

	b := &BlockChain{
		db:        config.DB,
		bestChain: &chainView{},
	}

	// Reload the view from the height index.  An empty store simply
	// yields an empty view.
	bestHeight, err := config.DB.BestHeight()
	if err != nil {
		if err == database.ErrBlockNotFound {
			return b, nil
		}
		return nil, err
	}
	for height := int32(0); height <= bestHeight; height++ {
		block, err := config.DB.BlockByHeight(height)
		if err != nil {
			return nil, fmt.Errorf("unable to rebuild chain view "+
				"at height %d: %w", height, err)
		}
		b.bestChain.appendNode(&blockNode{
			hash:   *block.Hash(),
			height: height,
		})
	}

	log.Infof("Chain state loaded with height %d", bestHeight)
	return b, nil
}

// BestHeight returns the height of the current tip of the best chain.  It
// returns -1 when the chain is empty.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestHeight() int32 {
	return b.bestChain.height()
}

// BestHash returns the hash of the current tip of the best chain, or nil
// when the chain is empty.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestHash() *chainhash.Hash {
	tip := b.bestChain.tip()
	if tip == nil {
		return nil
	}
	hash := tip.hash
	return &hash
}

// BlockHashByHeight returns the hash of the block at the given height in the
// main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHashByHeight(blockHeight int32) (*chainhash.Hash, error) {
	node := b.bestChain.NodeByHeight(blockHeight)
	if node == nil {
		str := fmt.Sprintf("no block at height %d exists", blockHeight)
		return nil, errNotInMainChain(str)
	}

	return &node.hash, nil
}

// BlockByHeight returns the main-chain block at the given height.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockByHeight(blockHeight int32) (*ordutil.Block, error) {
	if node := b.bestChain.NodeByHeight(blockHeight); node == nil {
		str := fmt.Sprintf("no block at height %d exists", blockHeight)
		return nil, errNotInMainChain(str)
	}

	return b.db.BlockByHeight(blockHeight)
}

// ConnectBlock extends the best chain with the passed block.  The block must
// build on the current tip; the new tip is persisted before observers are
// notified with NTBlockConnected.
//
// Connect events are serialized by the chain lock, so notification callbacks
// observe them in chain order.
func (b *BlockChain) ConnectBlock(block *ordutil.Block) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	tip := b.bestChain.tip()
	prevHash := &block.MsgBlock().Header.PrevBlock
	if tip == nil {
		var zeroHash chainhash.Hash
		if *prevHash != zeroHash {
			str := fmt.Sprintf("genesis block must not reference "+
				"a previous block, got %v", prevHash)
			return ruleError(str)
		}
		block.SetHeight(0)
	} else {
		if !prevHash.IsEqual(&tip.hash) {
			str := fmt.Sprintf("block %v does not extend the "+
				"current tip %v", block.Hash(), tip.hash)
			return ruleError(str)
		}
		block.SetHeight(tip.height + 1)
	}

	if err := b.db.PutBlock(block); err != nil {
		return err
	}
	b.bestChain.appendNode(&blockNode{
		hash:   *block.Hash(),
		height: block.Height(),
	})

	log.Debugf("Block %v connected at height %d with %d transactions",
		block.Hash(), block.Height(), len(block.MsgBlock().Transactions))

	// Notify the caller that the block was connected to the main chain.
	b.sendNotification(NTBlockConnected, block)
	return nil
}

// DisconnectBlock removes the current tip of the best chain and returns the
// detached block.  Observers are notified with NTBlockDisconnected.  Only
// the tip can be disconnected, which enforces the LIFO order reorgs need.
func (b *BlockChain) DisconnectBlock() (*ordutil.Block, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	tip := b.bestChain.tip()
	if tip == nil {
		return nil, errNotInMainChain("no block to disconnect")
	}

	block, err := b.db.BlockByHeight(tip.height)
	if err != nil {
		return nil, err
	}
	b.bestChain.removeTip()

	log.Debugf("Block %v disconnected at height %d", block.Hash(),
		block.Height())

	// Notify the caller that the block was disconnected from the main
	// chain.
	b.sendNotification(NTBlockDisconnected, block)
	return block, nil
}

// RecentBlocks returns up to n of the most recently connected main-chain
// blocks in increasing height order.  Blocks missing from the store, for
// example due to pruning, are skipped.
func (b *BlockChain) RecentBlocks(ctx context.Context, n int) ([]*ordutil.Block, error) {
	b.chainLock.RLock()
	bestHeight := b.bestChain.height()
	b.chainLock.RUnlock()

	if bestHeight < 0 || n < 1 {
		return nil, nil
	}

	startHeight := bestHeight - int32(n) + 1
	if startHeight < 0 {
		startHeight = 0
	}

	blocks := make([]*ordutil.Block, 0, n)
	for height := startHeight; height <= bestHeight; height++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, err := b.db.BlockByHeight(height)
		if err != nil {
			if err == database.ErrBlockNotFound {
				log.Debugf("Skipping missing block at height "+
					"%d", height)
				continue
			}
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
