package wire

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
)

const (
	// blockHeaderLen is a constant that represents the number of bytes for a
	// block header.
	blockHeaderLen = 80

	// maxTxPerBlock is the maximum number of transactions that could
	// possibly fit into a block.
	maxTxPerBlock = 65536
)

// BlockHeader defines information about a block and is used in the ordinate
// block (MsgBlock) message.
type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	Version int32

	// Hash of the previous block header in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.  This is, unfortunately, encoded as a
	// uint32 on the wire and therefore is limited to 2106.
	Timestamp time.Time

	// Difficulty target for the block.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint32
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	// Encode the header and double sha256 everything prior to the number of
	// transactions.  Ignore the error returns since there is no way the
	// encode could fail except being out of memory which would cause a
	// run-time panic.
	buf := bytes.NewBuffer(make([]byte, 0, blockHeaderLen))
	_ = writeBlockHeader(buf, h)

	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize encodes a block header from h into w using a format that is
// suitable for long-term storage such as a database.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Deserialize decodes a block header from r into the receiver using a format
// that is suitable for long-term storage such as a database.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// NewBlockHeader returns a new BlockHeader using the provided version,
// previous block hash, merkle root hash, difficulty bits, and nonce with the
// timestamp set to the current time, truncated to one second precision, which
// is the precision the timestamp is encoded with.
func NewBlockHeader(version int32, prevHash, merkleRootHash *chainhash.Hash,
	bits uint32, nonce uint32) *BlockHeader {

	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRootHash,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}

// readBlockHeader reads an ordinate block header from r.
func readBlockHeader(r io.Reader, bh *BlockHeader) error {
	var buf [blockHeaderLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}

	bh.Version = int32(littleEndian.Uint32(buf[0:4]))
	copy(bh.PrevBlock[:], buf[4:36])
	copy(bh.MerkleRoot[:], buf[36:68])
	bh.Timestamp = time.Unix(int64(littleEndian.Uint32(buf[68:72])), 0)
	bh.Bits = littleEndian.Uint32(buf[72:76])
	bh.Nonce = littleEndian.Uint32(buf[76:80])
	return nil
}

// writeBlockHeader writes an ordinate block header to w.
func writeBlockHeader(w io.Writer, bh *BlockHeader) error {
	var buf [blockHeaderLen]byte
	littleEndian.PutUint32(buf[0:4], uint32(bh.Version))
	copy(buf[4:36], bh.PrevBlock[:])
	copy(buf[36:68], bh.MerkleRoot[:])
	littleEndian.PutUint32(buf[68:72], uint32(bh.Timestamp.Unix()))
	littleEndian.PutUint32(buf[72:76], bh.Bits)
	littleEndian.PutUint32(buf[76:80], bh.Nonce)
	_, err := w.Write(buf[:])
	return err
}

// MsgBlock represents an ordinate block: a header and its transactions.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// ClearTransactions removes all transactions from the message.
func (msg *MsgBlock) ClearTransactions() {
	msg.Transactions = make([]*MsgTx, 0, 16)
}

// Deserialize decodes a block from r into the receiver using a format that is
// suitable for long-term storage such as a database.
func (msg *MsgBlock) Deserialize(r io.Reader) error {
	err := readBlockHeader(r, &msg.Header)
	if err != nil {
		return err
	}

	txCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}

	// Prevent more transactions than could possibly fit into a block.
	// It would be possible to cause memory exhaustion and panics without
	// a sane upper bound on this count.
	if txCount > maxTxPerBlock {
		str := fmt.Sprintf("too many transactions to fit into a block "+
			"[count %d, max %d]", txCount, maxTxPerBlock)
		return messageError("MsgBlock.Deserialize", str)
	}

	msg.Transactions = make([]*MsgTx, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx := MsgTx{}
		err := tx.Deserialize(r)
		if err != nil {
			return err
		}
		msg.Transactions = append(msg.Transactions, &tx)
	}

	return nil
}

// Serialize encodes the block to w using a format that is suitable for
// long-term storage such as a database.
func (msg *MsgBlock) Serialize(w io.Writer) error {
	err := writeBlockHeader(w, &msg.Header)
	if err != nil {
		return err
	}

	err = WriteVarInt(w, uint64(len(msg.Transactions)))
	if err != nil {
		return err
	}

	for _, tx := range msg.Transactions {
		err = tx.Serialize(w)
		if err != nil {
			return err
		}
	}

	return nil
}

// SerializeSize returns the number of bytes it would take to serialize the
// block.
func (msg *MsgBlock) SerializeSize() int {
	// Block header bytes + Serialized varint size for the number of
	// transactions.
	n := blockHeaderLen + VarIntSerializeSize(uint64(len(msg.Transactions)))

	for _, tx := range msg.Transactions {
		n += tx.SerializeSize()
	}

	return n
}

// BlockHash computes the block identifier hash for this block.
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

// TxHashes returns a slice of hashes of all of transactions in this block.
func (msg *MsgBlock) TxHashes() []chainhash.Hash {
	hashList := make([]chainhash.Hash, 0, len(msg.Transactions))
	for _, tx := range msg.Transactions {
		hashList = append(hashList, tx.TxHash())
	}
	return hashList
}

// NewMsgBlock returns a new ordinate block message with the passed header
// and no transactions.  See MsgBlock for details.
func NewMsgBlock(blockHeader *BlockHeader) *MsgBlock {
	return &MsgBlock{
		Header:       *blockHeader,
		Transactions: make([]*MsgTx, 0, 16),
	}
}
