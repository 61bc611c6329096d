package blockchain

import (
	"sync"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
)

// blockNode represents a block within the block chain and is primarily used
// to aid in selecting the best chain to be the main chain.
type blockNode struct {
	// hash is the double sha256 of the block header.
	hash chainhash.Hash

	// height is the position in the block chain.
	height int32
}

// chainView provides a flat view of a specific branch of the block chain from
// its tip back to the genesis block, indexed by height.
//
// For example, assume a block chain with a side chain as depicted below:
//
//	genesis -> 1 -> 2 -> 3 -> 4  -> 5 ->  6  -> 7  -> 8
//	                      \-> 4a -> 5a -> 6a
//
// The chain view for the branch ending in 6a consists of:
//
//	genesis -> 1 -> 2 -> 3 -> 4a -> 5a -> 6a
type chainView struct {
	mtx   sync.Mutex
	nodes []*blockNode
}

// nodeByHeight returns the block node at the specified height.  Nil will be
// returned if the height does not exist.  This only differs from the exported
// version in that it is up to the caller to ensure the lock is held.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *chainView) nodeByHeight(height int32) *blockNode {
	if height < 0 || height >= int32(len(c.nodes)) {
		return nil
	}

	return c.nodes[height]
}

// NodeByHeight returns the block node at the specified height.  Nil will be
// returned if the height does not exist.
//
// This function is safe for concurrent access.
func (c *chainView) NodeByHeight(height int32) *blockNode {
	c.mtx.Lock()
	node := c.nodeByHeight(height)
	c.mtx.Unlock()
	return node
}

// tip returns the current tip block node for the chain view.  It will return
// nil if there is no tip.
//
// This function is safe for concurrent access.
func (c *chainView) tip() *blockNode {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[len(c.nodes)-1]
}

// height returns the height of the tip of the chain view.  It will return -1
// if there is no tip.
//
// This function is safe for concurrent access.
func (c *chainView) height() int32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return int32(len(c.nodes)) - 1
}

// appendNode extends the chain view with the given node as the new tip.
//
// This function is safe for concurrent access.
func (c *chainView) appendNode(node *blockNode) {
	c.mtx.Lock()
	c.nodes = append(c.nodes, node)
	c.mtx.Unlock()
}

// removeTip removes the current tip from the chain view and returns it.  It
// will return nil if there is no tip.
//
// This function is safe for concurrent access.
func (c *chainView) removeTip() *blockNode {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if len(c.nodes) == 0 {
		return nil
	}
	node := c.nodes[len(c.nodes)-1]
	c.nodes[len(c.nodes)-1] = nil
	c.nodes = c.nodes[:len(c.nodes)-1]
	return node
}
