package mqtt

import "io"

// QoS levels. The engine always downgrades outgoing publishes to QoS0.
const (
	QoS0 byte = 0
	QoS1 byte = 1
	QoS2 byte = 2
)

// Protocol name and level for MQTT 3.1.1 (section 3.1.2).
const (
	protocolName  = "MQTT"
	protocolLevel = 4
)

// Packet is implemented by all MQTT control packets.
type Packet interface {
	// Type returns the control packet type.
	Type() PacketType

	// Encode writes the complete packet, fixed header included.
	Encode(w io.Writer) error

	// Decode reads the variable header and payload. The fixed header has
	// already been consumed by the caller.
	Decode(r io.Reader, header FixedHeader) error
}

// LastWill is the message the broker publishes on the client's behalf if the
// connection drops without a DISCONNECT.
type LastWill struct {
	Topic   string
	Message []byte
	QoS     byte
	Retain  bool
}

// newPacket returns a zero packet value for the given type, or nil if the
// type has no client-side decoding.
func newPacket(t PacketType) Packet {
	switch t {
	case PacketCONNECT:
		return &ConnectPacket{}
	case PacketCONNACK:
		return &ConnackPacket{}
	case PacketPUBLISH:
		return &PublishPacket{}
	case PacketPUBACK:
		return &PubackPacket{}
	case PacketSUBSCRIBE:
		return &SubscribePacket{}
	case PacketSUBACK:
		return &SubackPacket{}
	case PacketUNSUBSCRIBE:
		return &UnsubscribePacket{}
	case PacketUNSUBACK:
		return &UnsubackPacket{}
	case PacketPINGREQ:
		return &PingreqPacket{}
	case PacketPINGRESP:
		return &PingrespPacket{}
	case PacketDISCONNECT:
		return &DisconnectPacket{}
	default:
		return nil
	}
}
