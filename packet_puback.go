package mqtt

import "io"

// PubackPacket acknowledges a QoS 1 PUBLISH (MQTT 3.1.1 section 3.4).
//
// The engine never publishes above QoS 0, so it never expects one of these;
// it is decodable so a stray broker ack is reported as a protocol violation
// by the dispatcher rather than as a codec failure.
type PubackPacket struct {
	PacketID uint16
}

// Type returns PacketPUBACK.
func (p *PubackPacket) Type() PacketType { return PacketPUBACK }

// Encode writes the packet.
func (p *PubackPacket) Encode(w io.Writer) error {
	return encodeFramed(w, PacketPUBACK, 0, func(w io.Writer) error {
		return writeUint16(w, p.PacketID)
	})
}

// Decode reads the variable header.
func (p *PubackPacket) Decode(r io.Reader, _ FixedHeader) error {
	id, err := readUint16(r)
	if err != nil {
		return err
	}
	p.PacketID = id
	return nil
}
