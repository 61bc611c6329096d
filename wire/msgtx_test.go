package wire

import (
	"bytes"
	"testing"

	"github.com/OrdinateLabs/ordd/chaincfg/chainhash"
)

// TestTxSerializeSize performs tests to ensure the serialize size for
// various transactions is accurate.
func TestTxSerializeSize(t *testing.T) {
	// Empty tx message.
	noTx := NewMsgTx(1)

	// Transaction with an input and an output.
	spendTx := NewMsgTx(1)
	spendTx.AddTxIn(NewTxIn(&OutPoint{Index: 0}, []byte{0x04, 0x31, 0xdc}))
	spendTx.AddTxOut(NewTxOut(5000000000, []byte{0x41, 0xac}))

	tests := []struct {
		in   *MsgTx // Tx to encode
		size int    // Expected serialized size
	}{
		// Empty tx message: version 4 bytes + locktime 4 bytes +
		// varint for number of inputs and outputs 1 byte each.
		{noTx, 10},

		// Transaction with an input and an output: base 10 bytes +
		// input (40 + 1 + 3) + output (8 + 1 + 2).
		{spendTx, 65},
	}

	for i, test := range tests {
		serializedSize := test.in.SerializeSize()
		if serializedSize != test.size {
			t.Errorf("MsgTx.SerializeSize: #%d got: %d, want: %d",
				i, serializedSize, test.size)
			continue
		}

		// The computed size must agree with the actual number of
		// serialized bytes.
		var buf bytes.Buffer
		if err := test.in.Serialize(&buf); err != nil {
			t.Errorf("Serialize #%d error %v", i, err)
			continue
		}
		if buf.Len() != test.size {
			t.Errorf("Serialize #%d wrote %d bytes, want %d", i,
				buf.Len(), test.size)
		}
	}
}

// TestTxSerialize tests MsgTx serialize and deserialize by performing a
// round trip and ensuring the serialized forms match.
func TestTxSerialize(t *testing.T) {
	tx := NewMsgTx(TxVersion)
	prevHash, err := chainhash.NewHashFromStr("01")
	if err != nil {
		t.Fatalf("NewHashFromStr: %v", err)
	}
	tx.AddTxIn(NewTxIn(NewOutPoint(prevHash, 1), []byte{0x51, 0x52}))
	tx.AddTxOut(NewTxOut(100000000, []byte{0x76, 0xa9, 0x14}))
	tx.LockTime = 5

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var decoded MsgTx
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	var rebuf bytes.Buffer
	if err := decoded.Serialize(&rebuf); err != nil {
		t.Fatalf("Serialize decoded: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), rebuf.Bytes()) {
		t.Fatalf("round trip mismatch: %x != %x", buf.Bytes(),
			rebuf.Bytes())
	}

	// The hash must be stable across the round trip.
	if got, want := decoded.TxHash(), tx.TxHash(); got != want {
		t.Fatalf("hash changed by round trip: %v != %v", got, want)
	}
}

// TestBlockSerialize tests MsgBlock serialize and deserialize by performing
// a round trip.
func TestBlockSerialize(t *testing.T) {
	block := &MsgBlock{Header: BlockHeader{Version: 1, Bits: 0x1d00ffff,
		Nonce: 42}}
	tx := NewMsgTx(TxVersion)
	tx.AddTxIn(NewTxIn(&OutPoint{Index: 0xffffffff}, []byte{0x00}))
	tx.AddTxOut(NewTxOut(5000000000, []byte{0x51}))
	block.AddTransaction(tx)

	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != block.SerializeSize() {
		t.Fatalf("SerializeSize: got %d, want %d",
			block.SerializeSize(), buf.Len())
	}

	var decoded MsgBlock
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got, want := decoded.BlockHash(), block.BlockHash(); got != want {
		t.Fatalf("hash changed by round trip: %v != %v", got, want)
	}
	if len(decoded.Transactions) != 1 {
		t.Fatalf("transaction count: got %d, want 1",
			len(decoded.Transactions))
	}
}

// TestVarIntRoundTrip checks the canonical varint encoding at its
// boundaries.
func TestVarIntRoundTrip(t *testing.T) {
	tests := []struct {
		val  uint64
		size int
	}{
		{0, 1},
		{0xfc, 1},
		{0xfd, 3},
		{0xffff, 3},
		{0x10000, 5},
		{0xffffffff, 5},
		{0x100000000, 9},
	}

	for _, test := range tests {
		if got := VarIntSerializeSize(test.val); got != test.size {
			t.Errorf("VarIntSerializeSize(%d): got %d, want %d",
				test.val, got, test.size)
			continue
		}

		var buf bytes.Buffer
		if err := WriteVarInt(&buf, test.val); err != nil {
			t.Errorf("WriteVarInt(%d): %v", test.val, err)
			continue
		}
		if buf.Len() != test.size {
			t.Errorf("WriteVarInt(%d): wrote %d bytes, want %d",
				test.val, buf.Len(), test.size)
			continue
		}

		val, err := ReadVarInt(&buf)
		if err != nil {
			t.Errorf("ReadVarInt(%d): %v", test.val, err)
			continue
		}
		if val != test.val {
			t.Errorf("ReadVarInt: got %d, want %d", val, test.val)
		}
	}
}
