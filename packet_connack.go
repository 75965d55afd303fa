package mqtt

import "io"

// ConnectReturnCode is the broker's verdict in a CONNACK packet
// (MQTT 3.1.1 section 3.2.2.3).
type ConnectReturnCode byte

// CONNACK return codes.
const (
	ConnectionAccepted                  ConnectReturnCode = 0
	ConnectionRefusedProtocolVersion    ConnectReturnCode = 1
	ConnectionRefusedIdentifierRejected ConnectReturnCode = 2
	ConnectionRefusedServerUnavailable  ConnectReturnCode = 3
	ConnectionRefusedBadCredentials     ConnectReturnCode = 4
	ConnectionRefusedNotAuthorized      ConnectReturnCode = 5
)

// String returns a human-readable description of the return code.
func (c ConnectReturnCode) String() string {
	switch c {
	case ConnectionAccepted:
		return "connection accepted"
	case ConnectionRefusedProtocolVersion:
		return "unacceptable protocol version"
	case ConnectionRefusedIdentifierRejected:
		return "identifier rejected"
	case ConnectionRefusedServerUnavailable:
		return "server unavailable"
	case ConnectionRefusedBadCredentials:
		return "bad username or password"
	case ConnectionRefusedNotAuthorized:
		return "not authorized"
	default:
		return "unknown return code"
	}
}

// ConnackPacket is the broker's response to CONNECT
// (MQTT 3.1.1 section 3.2).
type ConnackPacket struct {
	SessionPresent bool
	ReturnCode     ConnectReturnCode
}

// Type returns PacketCONNACK.
func (p *ConnackPacket) Type() PacketType { return PacketCONNACK }

// Encode writes the packet.
func (p *ConnackPacket) Encode(w io.Writer) error {
	return encodeFramed(w, PacketCONNACK, 0, func(w io.Writer) error {
		var ack byte
		if p.SessionPresent {
			ack = 0x01
		}
		if err := writeByte(w, ack); err != nil {
			return err
		}
		return writeByte(w, byte(p.ReturnCode))
	})
}

// Decode reads the variable header.
func (p *ConnackPacket) Decode(r io.Reader, _ FixedHeader) error {
	ack, err := readByte(r)
	if err != nil {
		return err
	}
	p.SessionPresent = ack&0x01 != 0

	code, err := readByte(r)
	if err != nil {
		return err
	}
	p.ReturnCode = ConnectReturnCode(code)

	return nil
}
