package mqtt

import (
	"errors"
	"io"
)

// PacketType identifies an MQTT 3.1.1 control packet.
type PacketType byte

// Control packet types (MQTT 3.1.1 section 2.2.1).
const (
	PacketCONNECT     PacketType = 1
	PacketCONNACK     PacketType = 2
	PacketPUBLISH     PacketType = 3
	PacketPUBACK      PacketType = 4
	PacketPUBREC      PacketType = 5
	PacketPUBREL      PacketType = 6
	PacketPUBCOMP     PacketType = 7
	PacketSUBSCRIBE   PacketType = 8
	PacketSUBACK      PacketType = 9
	PacketUNSUBSCRIBE PacketType = 10
	PacketUNSUBACK    PacketType = 11
	PacketPINGREQ     PacketType = 12
	PacketPINGRESP    PacketType = 13
	PacketDISCONNECT  PacketType = 14
)

// String returns the packet type name.
func (t PacketType) String() string {
	switch t {
	case PacketCONNECT:
		return "CONNECT"
	case PacketCONNACK:
		return "CONNACK"
	case PacketPUBLISH:
		return "PUBLISH"
	case PacketPUBACK:
		return "PUBACK"
	case PacketPUBREC:
		return "PUBREC"
	case PacketPUBREL:
		return "PUBREL"
	case PacketPUBCOMP:
		return "PUBCOMP"
	case PacketSUBSCRIBE:
		return "SUBSCRIBE"
	case PacketSUBACK:
		return "SUBACK"
	case PacketUNSUBSCRIBE:
		return "UNSUBSCRIBE"
	case PacketUNSUBACK:
		return "UNSUBACK"
	case PacketPINGREQ:
		return "PINGREQ"
	case PacketPINGRESP:
		return "PINGRESP"
	case PacketDISCONNECT:
		return "DISCONNECT"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether the packet type is a defined MQTT 3.1.1 type.
func (t PacketType) Valid() bool {
	return t >= PacketCONNECT && t <= PacketDISCONNECT
}

// Fixed header errors.
var (
	ErrInvalidPacketType  = errors.New("mqtt: invalid packet type")
	ErrInvalidPacketFlags = errors.New("mqtt: invalid fixed header flags")
)

// FixedHeader is the two-part header every control packet starts with:
// packet type plus flags in the first byte, then the remaining length.
type FixedHeader struct {
	PacketType      PacketType
	Flags           byte
	RemainingLength uint32
}

// Encode writes the fixed header.
func (h *FixedHeader) Encode(w io.Writer) error {
	if !h.PacketType.Valid() {
		return ErrInvalidPacketType
	}
	if err := writeByte(w, byte(h.PacketType)<<4|h.Flags&0x0F); err != nil {
		return err
	}
	return writeRemainingLength(w, h.RemainingLength)
}

// Decode reads the fixed header.
func (h *FixedHeader) Decode(r io.Reader) error {
	first, err := readByte(r)
	if err != nil {
		return err
	}

	h.PacketType = PacketType(first >> 4)
	h.Flags = first & 0x0F

	if !h.PacketType.Valid() {
		return ErrInvalidPacketType
	}

	length, err := readRemainingLength(r)
	if err != nil {
		return err
	}
	h.RemainingLength = length

	return h.validateFlags()
}

// validateFlags checks the flag bits required per packet type
// (MQTT 3.1.1 section 2.2.2).
func (h *FixedHeader) validateFlags() error {
	switch h.PacketType {
	case PacketPUBLISH:
		if qos := (h.Flags >> 1) & 0x03; qos > 2 {
			return ErrInvalidPacketFlags
		}
		return nil
	case PacketPUBREL, PacketSUBSCRIBE, PacketUNSUBSCRIBE:
		if h.Flags != 0x02 {
			return ErrInvalidPacketFlags
		}
		return nil
	default:
		if h.Flags != 0x00 {
			return ErrInvalidPacketFlags
		}
		return nil
	}
}

// PUBLISH flag accessors.

// DUP reports the DUP bit of a PUBLISH fixed header.
func (h *FixedHeader) DUP() bool { return h.Flags&0x08 != 0 }

// QoS reports the QoS bits of a PUBLISH fixed header.
func (h *FixedHeader) QoS() byte { return (h.Flags >> 1) & 0x03 }

// Retain reports the RETAIN bit of a PUBLISH fixed header.
func (h *FixedHeader) Retain() bool { return h.Flags&0x01 != 0 }
