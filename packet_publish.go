package mqtt

import (
	"bytes"
	"io"
)

// PublishPacket carries an application message in either direction
// (MQTT 3.1.1 section 3.3). The packet identifier is only present on the
// wire for QoS 1 and 2.
type PublishPacket struct {
	Topic    string
	Payload  []byte
	PacketID uint16
	QoS      byte
	Retain   bool
	Dup      bool
}

// Type returns PacketPUBLISH.
func (p *PublishPacket) Type() PacketType { return PacketPUBLISH }

func (p *PublishPacket) flags() byte {
	var f byte
	if p.Dup {
		f |= 0x08
	}
	f |= (p.QoS & 0x03) << 1
	if p.Retain {
		f |= 0x01
	}
	return f
}

// Encode writes the packet.
func (p *PublishPacket) Encode(w io.Writer) error {
	return encodeFramed(w, PacketPUBLISH, p.flags(), func(w io.Writer) error {
		if err := writeString(w, p.Topic); err != nil {
			return err
		}
		if p.QoS > QoS0 {
			if err := writeUint16(w, p.PacketID); err != nil {
				return err
			}
		}
		_, err := w.Write(p.Payload)
		return err
	})
}

// Decode reads the variable header and payload. The payload runs to the end
// of the remaining length, so decoding relies on r being bounded to the body.
func (p *PublishPacket) Decode(r io.Reader, header FixedHeader) error {
	p.Dup = header.DUP()
	p.QoS = header.QoS()
	p.Retain = header.Retain()

	topic, err := readString(r)
	if err != nil {
		return err
	}
	p.Topic = topic

	if p.QoS > QoS0 {
		if p.PacketID, err = readUint16(r); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	if buf.Len() > 0 {
		p.Payload = buf.Bytes()
	}

	return nil
}
