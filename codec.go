package mqtt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Codec errors.
var (
	ErrPacketTooLarge  = errors.New("mqtt: packet exceeds maximum size")
	ErrUnhandledPacket = errors.New("mqtt: packet type not handled by client codec")
)

// MaxPacketSize is the default inbound packet size guard. It is deliberately
// far below the protocol maximum; a client engine has no business receiving
// multi-megabyte packets.
const MaxPacketSize uint32 = 1 << 20

// ReadPacket reads one complete control packet from r. Packets whose
// remaining length exceeds maxSize (when maxSize > 0) return
// ErrPacketTooLarge without consuming the body.
func ReadPacket(r io.Reader, maxSize uint32) (Packet, error) {
	var header FixedHeader
	if err := header.Decode(r); err != nil {
		return nil, err
	}

	if maxSize > 0 && header.RemainingLength > maxSize {
		return nil, ErrPacketTooLarge
	}

	body := make([]byte, header.RemainingLength)
	if header.RemainingLength > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
	}

	pkt := newPacket(header.PacketType)
	if pkt == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnhandledPacket, header.PacketType)
	}

	if err := pkt.Decode(bytes.NewReader(body), header); err != nil {
		return nil, fmt.Errorf("mqtt: decoding %s: %w", header.PacketType, err)
	}

	return pkt, nil
}

// WritePacket writes one complete control packet to w.
func WritePacket(w io.Writer, pkt Packet) error {
	return pkt.Encode(w)
}

// encodeBufferPool recycles the scratch buffers encodeFramed frames into.
var encodeBufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Buffers that grew past this are not returned to the pool.
const maxPooledBufferSize = 65536

func putEncodeBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= maxPooledBufferSize {
		buf.Reset()
		encodeBufferPool.Put(buf)
	}
}

// encodeFramed buffers the variable header and payload produced by body,
// then writes the fixed header followed by the buffered bytes. Every packet
// Encode goes through here so the remaining length is always exact.
func encodeFramed(w io.Writer, t PacketType, flags byte, body func(io.Writer) error) error {
	buf := encodeBufferPool.Get().(*bytes.Buffer)
	defer putEncodeBuffer(buf)

	if body != nil {
		if err := body(buf); err != nil {
			return err
		}
	}

	header := FixedHeader{
		PacketType:      t,
		Flags:           flags,
		RemainingLength: uint32(buf.Len()),
	}
	if err := header.Encode(w); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}
