package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

var (
	// littleEndian is a convenience variable since binary.LittleEndian is
	// quite long.
	littleEndian = binary.LittleEndian
)

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[0:1]); err != nil {
		return 0, err
	}

	var rv uint64
	discriminant := b[0]
	switch discriminant {
	case 0xff:
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		rv = littleEndian.Uint64(b[:])

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		if rv < 0x100000000 {
			return 0, messageError("ReadVarInt", errNonCanonicalVarInt)
		}

	case 0xfe:
		if _, err := io.ReadFull(r, b[0:4]); err != nil {
			return 0, err
		}
		rv = uint64(littleEndian.Uint32(b[0:4]))

		if rv < 0x10000 {
			return 0, messageError("ReadVarInt", errNonCanonicalVarInt)
		}

	case 0xfd:
		if _, err := io.ReadFull(r, b[0:2]); err != nil {
			return 0, err
		}
		rv = uint64(littleEndian.Uint16(b[0:2]))

		if rv < 0xfd {
			return 0, messageError("ReadVarInt", errNonCanonicalVarInt)
		}

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{uint8(val)})
		return err
	}

	if val <= 0xffff {
		var buf [3]byte
		buf[0] = 0xfd
		littleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf[:])
		return err
	}

	if val <= 0xffffffff {
		var buf [5]byte
		buf[0] = 0xfe
		littleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf[:])
		return err
	}

	var buf [9]byte
	buf[0] = 0xff
	littleEndian.PutUint64(buf[1:], val)
	_, err := w.Write(buf[:])
	return err
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	// The value is small enough to be represented by itself, so it's
	// just 1 byte.
	if val < 0xfd {
		return 1
	}

	// Discriminant 1 byte plus 2 bytes for the uint16.
	if val <= 0xffff {
		return 3
	}

	// Discriminant 1 byte plus 4 bytes for the uint32.
	if val <= 0xffffffff {
		return 5
	}

	// Discriminant 1 byte plus 8 bytes for the uint64.
	return 9
}

// ReadVarBytes reads a variable length byte array.  A byte array is encoded
// as a varInt containing the length of the array followed by the bytes
// themselves.  An error is returned if the length is greater than the
// passed maxAllowed parameter which helps protect against memory exhaustion
// attacks and forced panics through malformed messages.
func ReadVarBytes(r io.Reader, maxAllowed uint32, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	// Prevent byte array larger than the max message size.  It would
	// be possible to cause memory exhaustion and panics without a sane
	// upper bound on this count.
	if count > uint64(maxAllowed) {
		str := fmt.Sprintf("%s is larger than the max allowed size "+
			"[count %d, max %d]", fieldName, count, maxAllowed)
		return nil, messageError("ReadVarBytes", str)
	}

	b := make([]byte, count)
	_, err = io.ReadFull(r, b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w as a varInt
// containing the number of bytes, followed by the bytes themselves.
func WriteVarBytes(w io.Writer, bytes []byte) error {
	slen := uint64(len(bytes))
	err := WriteVarInt(w, slen)
	if err != nil {
		return err
	}

	_, err = w.Write(bytes)
	return err
}

const errNonCanonicalVarInt = "non-canonical varint"

// MessageError describes an issue with a message.  An example of some
// potential issues are messages from the wrong ordinate network, invalid
// commands, mismatched checksums, and exceeding max payloads.
type MessageError struct {
	Func        string // Function name
	Description string // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%v: %v", e.Func, e.Description)
	}
	return e.Description
}

// messageError creates an error for the given function and description.
func messageError(f string, desc string) *MessageError {
	return &MessageError{Func: f, Description: desc}
}
