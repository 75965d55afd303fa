package mqtt

import "io"

// PingreqPacket is the keep-alive probe (MQTT 3.1.1 section 3.12).
type PingreqPacket struct{}

// Type returns PacketPINGREQ.
func (p *PingreqPacket) Type() PacketType { return PacketPINGREQ }

// Encode writes the packet.
func (p *PingreqPacket) Encode(w io.Writer) error {
	return encodeFramed(w, PacketPINGREQ, 0, nil)
}

// Decode is a no-op; PINGREQ has no body.
func (p *PingreqPacket) Decode(_ io.Reader, _ FixedHeader) error { return nil }

// PingrespPacket answers a PINGREQ (MQTT 3.1.1 section 3.13).
type PingrespPacket struct{}

// Type returns PacketPINGRESP.
func (p *PingrespPacket) Type() PacketType { return PacketPINGRESP }

// Encode writes the packet.
func (p *PingrespPacket) Encode(w io.Writer) error {
	return encodeFramed(w, PacketPINGRESP, 0, nil)
}

// Decode is a no-op; PINGRESP has no body.
func (p *PingrespPacket) Decode(_ io.Reader, _ FixedHeader) error { return nil }
