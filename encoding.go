package mqtt

import (
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"
)

// Encoding errors.
var (
	ErrStringTooLong    = errors.New("mqtt: string exceeds 65535 bytes")
	ErrPayloadTooLong   = errors.New("mqtt: length-prefixed data exceeds 65535 bytes")
	ErrInvalidUTF8      = errors.New("mqtt: invalid UTF-8 string")
	ErrLengthMalformed  = errors.New("mqtt: malformed remaining length")
	ErrLengthOutOfRange = errors.New("mqtt: remaining length exceeds maximum value")
)

// maxRemainingLength is the largest value a 4-byte variable length integer
// can carry (MQTT 3.1.1 section 2.2.3).
const maxRemainingLength = 268435455

// writeString writes a UTF-8 string with a 2-byte length prefix.
func writeString(w io.Writer, s string) error {
	if len(s) > 65535 {
		return ErrStringTooLong
	}
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	if err := writeUint16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readString reads a UTF-8 string with a 2-byte length prefix.
func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// writeBytes writes binary data with a 2-byte length prefix.
func writeBytes(w io.Writer, data []byte) error {
	if len(data) > 65535 {
		return ErrPayloadTooLong
	}
	if err := writeUint16(w, uint16(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// readBytes reads binary data with a 2-byte length prefix.
func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// writeRemainingLength writes a variable length integer, 1-4 bytes.
func writeRemainingLength(w io.Writer, v uint32) error {
	if v > maxRemainingLength {
		return ErrLengthOutOfRange
	}
	var buf [4]byte
	n := 0
	for {
		d := byte(v % 128)
		v /= 128
		if v > 0 {
			d |= 0x80
		}
		buf[n] = d
		n++
		if v == 0 {
			break
		}
	}
	_, err := w.Write(buf[:n])
	return err
}

// readRemainingLength reads a variable length integer, 1-4 bytes.
func readRemainingLength(r io.Reader) (uint32, error) {
	var v uint32
	var shift uint
	for i := 0; ; i++ {
		if i == 4 {
			return 0, ErrLengthMalformed
		}
		d, err := readByte(r)
		if err != nil {
			return 0, err
		}
		v |= uint32(d&0x7F) << shift
		if d&0x80 == 0 {
			break
		}
		shift += 7
	}
	if v > maxRemainingLength {
		return 0, ErrLengthOutOfRange
	}
	return v, nil
}

// remainingLengthSize returns the encoded size of a remaining length value.
func remainingLengthSize(v uint32) int {
	switch {
	case v < 128:
		return 1
	case v < 16384:
		return 2
	case v < 2097152:
		return 3
	default:
		return 4
	}
}
