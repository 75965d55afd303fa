package mqtt

import "io"

// DisconnectPacket is the client's graceful goodbye
// (MQTT 3.1.1 section 3.14).
type DisconnectPacket struct{}

// Type returns PacketDISCONNECT.
func (p *DisconnectPacket) Type() PacketType { return PacketDISCONNECT }

// Encode writes the packet.
func (p *DisconnectPacket) Encode(w io.Writer) error {
	return encodeFramed(w, PacketDISCONNECT, 0, nil)
}

// Decode is a no-op; DISCONNECT has no body in 3.1.1.
func (p *DisconnectPacket) Decode(_ io.Reader, _ FixedHeader) error { return nil }
