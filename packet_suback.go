package mqtt

import "io"

// SubackReturnCode values (MQTT 3.1.1 section 3.9.3): granted QoS 0-2 or
// failure.
const (
	SubackGrantedQoS0 byte = 0x00
	SubackGrantedQoS1 byte = 0x01
	SubackGrantedQoS2 byte = 0x02
	SubackFailure     byte = 0x80
)

// SubackPacket acknowledges a SUBSCRIBE, one return code per requested
// subscription (MQTT 3.1.1 section 3.9).
type SubackPacket struct {
	PacketID    uint16
	ReturnCodes []byte
}

// Type returns PacketSUBACK.
func (p *SubackPacket) Type() PacketType { return PacketSUBACK }

// Encode writes the packet.
func (p *SubackPacket) Encode(w io.Writer) error {
	return encodeFramed(w, PacketSUBACK, 0, func(w io.Writer) error {
		if err := writeUint16(w, p.PacketID); err != nil {
			return err
		}
		_, err := w.Write(p.ReturnCodes)
		return err
	})
}

// Decode reads the variable header and payload.
func (p *SubackPacket) Decode(r io.Reader, header FixedHeader) error {
	id, err := readUint16(r)
	if err != nil {
		return err
	}
	p.PacketID = id

	if header.RemainingLength > 2 {
		codes := make([]byte, header.RemainingLength-2)
		if _, err := io.ReadFull(r, codes); err != nil {
			return err
		}
		p.ReturnCodes = codes
	}
	return nil
}
