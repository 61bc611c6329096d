package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
)

const (
	// TxVersion is the current latest supported transaction version.
	TxVersion = 1

	// maxTxInPerMessage is the maximum number of transactions inputs that
	// a transaction which fits into a message could possibly have.
	maxTxInPerMessage = 65536

	// maxTxOutPerMessage is the maximum number of transactions outputs that
	// a transaction which fits into a message could possibly have.
	maxTxOutPerMessage = 65536

	// maxScriptSize is the maximum size a script is allowed to be in a
	// serialized transaction.
	maxScriptSize = 10000

	// minTxPayload is the minimum payload size for a transaction.  Note
	// that any realistically usable transaction must have at least one
	// input and output.
	minTxPayload = 10
)

// OutPoint defines an ordinate data type that is used to track previous
// transaction outputs.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new ordinate transaction outpoint point with the
// provided hash and index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{
		Hash:  *hash,
		Index: index,
	}
}

// String returns the OutPoint in the human-readable form "hash:index".
func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash, o.Index)
}

// TxIn defines an ordinate transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction input.
func (t *TxIn) SerializeSize() int {
	// Outpoint Hash 32 bytes + Outpoint Index 4 bytes + Sequence 4 bytes +
	// serialized varint size for the length of SignatureScript +
	// SignatureScript bytes.
	return 40 + VarIntSerializeSize(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript)
}

// NewTxIn returns a new ordinate transaction input with the provided
// previous outpoint point and signature script with a default sequence.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         0xffffffff,
	}
}

// TxOut defines an ordinate transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction output.
func (t *TxOut) SerializeSize() int {
	// Value 8 bytes + serialized varint size for the length of PkScript +
	// PkScript bytes.
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// NewTxOut returns a new ordinate transaction output with the provided
// transaction value and public key script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{
		Value:    value,
		PkScript: pkScript,
	}
}

// MsgTx represents an ordinate transaction.
//
// Use the AddTxIn and AddTxOut functions to build up the list of transaction
// inputs and outputs.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// TxHash generates the Hash for the transaction.
func (msg *MsgTx) TxHash() chainhash.Hash {
	// Encode the transaction and calculate double sha256 on the result.
	// Ignore the error returns since the only way the encode could fail
	// is being out of memory or due to nil pointers, both of which would
	// cause a run-time panic.
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	_ = msg.Serialize(buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Deserialize decodes a transaction from r into the receiver using a format
// that is suitable for long-term storage such as a database.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	msg.Version = int32(littleEndian.Uint32(buf[:]))

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxInPerMessage) {
		str := fmt.Sprintf("too many input transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxInPerMessage)
		return messageError("MsgTx.Deserialize", str)
	}

	msg.TxIn = make([]*TxIn, 0, count)
	for i := uint64(0); i < count; i++ {
		ti := TxIn{}
		err = readTxIn(r, &ti)
		if err != nil {
			return err
		}
		msg.TxIn = append(msg.TxIn, &ti)
	}

	count, err = ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(maxTxOutPerMessage) {
		str := fmt.Sprintf("too many output transactions to fit into "+
			"max message size [count %d, max %d]", count,
			maxTxOutPerMessage)
		return messageError("MsgTx.Deserialize", str)
	}

	msg.TxOut = make([]*TxOut, 0, count)
	for i := uint64(0); i < count; i++ {
		to := TxOut{}
		err = readTxOut(r, &to)
		if err != nil {
			return err
		}
		msg.TxOut = append(msg.TxOut, &to)
	}

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	msg.LockTime = littleEndian.Uint32(buf[:])

	return nil
}

// Serialize encodes the transaction to w using a format that is suitable for
// long-term storage such as a database.
func (msg *MsgTx) Serialize(w io.Writer) error {
	var buf [4]byte
	littleEndian.PutUint32(buf[:], uint32(msg.Version))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeTxIn(w, ti); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := writeTxOut(w, to); err != nil {
			return err
		}
	}

	littleEndian.PutUint32(buf[:], msg.LockTime)
	_, err := w.Write(buf[:])
	return err
}

// SerializeSize returns the number of bytes it would take to serialize the
// the transaction.
func (msg *MsgTx) SerializeSize() int {
	// Version 4 bytes + LockTime 4 bytes + Serialized varint size for the
	// number of transaction inputs and outputs.
	n := 8 + VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(len(msg.TxOut)))

	for _, txIn := range msg.TxIn {
		n += txIn.SerializeSize()
	}

	for _, txOut := range msg.TxOut {
		n += txOut.SerializeSize()
	}

	return n
}

// NewMsgTx returns a new ordinate tx message with the passed version and
// no transaction inputs or outputs.  Also, the lock time is set to
// zero to indicate the transaction is valid immediately as opposed to some
// time in the future.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{
		Version: version,
		TxIn:    make([]*TxIn, 0, 8),
		TxOut:   make([]*TxOut, 0, 8),
	}
}

// readOutPoint reads the next sequence of bytes from r as an OutPoint.
func readOutPoint(r io.Reader, op *OutPoint) error {
	_, err := io.ReadFull(r, op.Hash[:])
	if err != nil {
		return err
	}

	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	op.Index = littleEndian.Uint32(buf[:])
	return nil
}

// writeOutPoint encodes op to the ordinate protocol encoding for an OutPoint
// to w.
func writeOutPoint(w io.Writer, op *OutPoint) error {
	_, err := w.Write(op.Hash[:])
	if err != nil {
		return err
	}

	var buf [4]byte
	littleEndian.PutUint32(buf[:], op.Index)
	_, err = w.Write(buf[:])
	return err
}

// readTxIn reads the next sequence of bytes from r as a transaction input.
func readTxIn(r io.Reader, ti *TxIn) error {
	err := readOutPoint(r, &ti.PreviousOutPoint)
	if err != nil {
		return err
	}

	ti.SignatureScript, err = ReadVarBytes(r, maxScriptSize,
		"transaction input signature script")
	if err != nil {
		return err
	}

	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	ti.Sequence = littleEndian.Uint32(buf[:])
	return nil
}

// writeTxIn encodes ti to the ordinate protocol encoding for a transaction
// input to w.
func writeTxIn(w io.Writer, ti *TxIn) error {
	err := writeOutPoint(w, &ti.PreviousOutPoint)
	if err != nil {
		return err
	}

	err = WriteVarBytes(w, ti.SignatureScript)
	if err != nil {
		return err
	}

	var buf [4]byte
	littleEndian.PutUint32(buf[:], ti.Sequence)
	_, err = w.Write(buf[:])
	return err
}

// readTxOut reads the next sequence of bytes from r as a transaction output.
func readTxOut(r io.Reader, to *TxOut) error {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	to.Value = int64(littleEndian.Uint64(buf[:]))

	var err error
	to.PkScript, err = ReadVarBytes(r, maxScriptSize,
		"transaction output public key script")
	return err
}

// writeTxOut encodes to into the ordinate protocol encoding for a transaction
// output to w.
func writeTxOut(w io.Writer, to *TxOut) error {
	var buf [8]byte
	littleEndian.PutUint64(buf[:], uint64(to.Value))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}

	return WriteVarBytes(w, to.PkScript)
}
