package mqtt

import (
	"errors"
	"io"
)

// Connect flag bits (MQTT 3.1.1 section 3.1.2.3).
const (
	connectFlagCleanSession = 0x02
	connectFlagWill         = 0x04
	connectFlagWillRetain   = 0x20
	connectFlagPassword     = 0x40
	connectFlagUsername     = 0x80
)

// ErrInvalidProtocolName is returned when a CONNECT packet does not carry
// the MQTT protocol name.
var ErrInvalidProtocolName = errors.New("mqtt: invalid protocol name")

// ConnectPacket is the connection request sent by the client
// (MQTT 3.1.1 section 3.1).
type ConnectPacket struct {
	ClientID     string
	KeepAlive    uint16
	CleanSession bool
	Will         *LastWill
	Username     string
	Password     []byte
}

// Type returns PacketCONNECT.
func (p *ConnectPacket) Type() PacketType { return PacketCONNECT }

func (p *ConnectPacket) flags() byte {
	var f byte
	if p.CleanSession {
		f |= connectFlagCleanSession
	}
	if p.Will != nil {
		f |= connectFlagWill | (p.Will.QoS&0x03)<<3
		if p.Will.Retain {
			f |= connectFlagWillRetain
		}
	}
	if p.Username != "" {
		f |= connectFlagUsername
	}
	if p.Password != nil {
		f |= connectFlagPassword
	}
	return f
}

// Encode writes the packet.
func (p *ConnectPacket) Encode(w io.Writer) error {
	return encodeFramed(w, PacketCONNECT, 0, func(w io.Writer) error {
		if err := writeString(w, protocolName); err != nil {
			return err
		}
		if err := writeByte(w, protocolLevel); err != nil {
			return err
		}
		if err := writeByte(w, p.flags()); err != nil {
			return err
		}
		if err := writeUint16(w, p.KeepAlive); err != nil {
			return err
		}
		if err := writeString(w, p.ClientID); err != nil {
			return err
		}
		if p.Will != nil {
			if err := writeString(w, p.Will.Topic); err != nil {
				return err
			}
			if err := writeBytes(w, p.Will.Message); err != nil {
				return err
			}
		}
		if p.Username != "" {
			if err := writeString(w, p.Username); err != nil {
				return err
			}
		}
		if p.Password != nil {
			if err := writeBytes(w, p.Password); err != nil {
				return err
			}
		}
		return nil
	})
}

// Decode reads the variable header and payload.
func (p *ConnectPacket) Decode(r io.Reader, _ FixedHeader) error {
	name, err := readString(r)
	if err != nil {
		return err
	}
	if name != protocolName {
		return ErrInvalidProtocolName
	}
	if _, err := readByte(r); err != nil { // protocol level
		return err
	}

	flags, err := readByte(r)
	if err != nil {
		return err
	}
	p.CleanSession = flags&connectFlagCleanSession != 0

	if p.KeepAlive, err = readUint16(r); err != nil {
		return err
	}
	if p.ClientID, err = readString(r); err != nil {
		return err
	}

	if flags&connectFlagWill != 0 {
		will := &LastWill{
			QoS:    (flags >> 3) & 0x03,
			Retain: flags&connectFlagWillRetain != 0,
		}
		if will.Topic, err = readString(r); err != nil {
			return err
		}
		if will.Message, err = readBytes(r); err != nil {
			return err
		}
		p.Will = will
	}

	if flags&connectFlagUsername != 0 {
		if p.Username, err = readString(r); err != nil {
			return err
		}
	}
	if flags&connectFlagPassword != 0 {
		if p.Password, err = readBytes(r); err != nil {
			return err
		}
	}

	return nil
}
