package mqtt

import (
	"errors"
	"io"
)

// ErrNoSubscriptions is returned when a SUBSCRIBE or UNSUBSCRIBE packet
// carries an empty topic list, which the protocol forbids.
var ErrNoSubscriptions = errors.New("mqtt: packet must carry at least one topic")

// Subscription pairs a topic filter with a requested QoS.
type Subscription struct {
	TopicFilter string
	QoS         byte
}

// SubscribePacket requests one or more subscriptions
// (MQTT 3.1.1 section 3.8).
type SubscribePacket struct {
	PacketID      uint16
	Subscriptions []Subscription
}

// Type returns PacketSUBSCRIBE.
func (p *SubscribePacket) Type() PacketType { return PacketSUBSCRIBE }

// Encode writes the packet.
func (p *SubscribePacket) Encode(w io.Writer) error {
	if len(p.Subscriptions) == 0 {
		return ErrNoSubscriptions
	}
	return encodeFramed(w, PacketSUBSCRIBE, 0x02, func(w io.Writer) error {
		if err := writeUint16(w, p.PacketID); err != nil {
			return err
		}
		for _, sub := range p.Subscriptions {
			if err := writeString(w, sub.TopicFilter); err != nil {
				return err
			}
			if err := writeByte(w, sub.QoS&0x03); err != nil {
				return err
			}
		}
		return nil
	})
}

// Decode reads the variable header and payload.
func (p *SubscribePacket) Decode(r io.Reader, header FixedHeader) error {
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
		qos, err := readByte(r)
		if err != nil {
			return err
		}
		p.Subscriptions = append(p.Subscriptions, Subscription{
			TopicFilter: filter,
			QoS:         qos & 0x03,
		})
		read += uint32(2 + len(filter) + 1)
	}

	if len(p.Subscriptions) == 0 {
		return ErrNoSubscriptions
	}
	return nil
}
