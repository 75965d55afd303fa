package mqtt

import "io"

// UnsubscribePacket removes one or more subscriptions
// (MQTT 3.1.1 section 3.10).
type UnsubscribePacket struct {
	PacketID     uint16
	TopicFilters []string
}

// Type returns PacketUNSUBSCRIBE.
func (p *UnsubscribePacket) Type() PacketType { return PacketUNSUBSCRIBE }

// Encode writes the packet.
func (p *UnsubscribePacket) Encode(w io.Writer) error {
	if len(p.TopicFilters) == 0 {
		return ErrNoSubscriptions
	}
	return encodeFramed(w, PacketUNSUBSCRIBE, 0x02, func(w io.Writer) error {
		if err := writeUint16(w, p.PacketID); err != nil {
			return err
		}
		for _, filter := range p.TopicFilters {
			if err := writeString(w, filter); err != nil {
				return err
			}
		}
		return nil
	})
}

// Decode reads the variable header and payload.
func (p *UnsubscribePacket) Decode(r io.Reader, header FixedHeader) error {
	id, err := readUint16(r)
	if err != nil {
		return err
	}
	p.PacketID = id

	read := uint32(2)
	for read < header.RemainingLength {
		filter, err := readString(r)
		if err != nil {
			return err
		}
		p.TopicFilters = append(p.TopicFilters, filter)
		read += uint32(2 + len(filter))
	}

	if len(p.TopicFilters) == 0 {
		return ErrNoSubscriptions
	}
	return nil
}

// UnsubackPacket acknowledges an UNSUBSCRIBE (MQTT 3.1.1 section 3.11).
type UnsubackPacket struct {
	PacketID uint16
}

// Type returns PacketUNSUBACK.
func (p *UnsubackPacket) Type() PacketType { return PacketUNSUBACK }

// Encode writes the packet.
func (p *UnsubackPacket) Encode(w io.Writer) error {
	return encodeFramed(w, PacketUNSUBACK, 0, func(w io.Writer) error {
		return writeUint16(w, p.PacketID)
	})
}

// Decode reads the variable header.
func (p *UnsubackPacket) Decode(r io.Reader, _ FixedHeader) error {
	id, err := readUint16(r)
	if err != nil {
		return err
	}
	p.PacketID = id
	return nil
}
