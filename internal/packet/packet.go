// Package packet defines the wire-level Packet type carried over the
// rings, a minimal Solana transaction-view parser over its payload,
// and the PartialMeta/RemainingMeta/TransactionMeta/ScoredTransaction
// views that the pipeline threads through scoring and feedback.
package packet

import "net"

const (
	// MaxPayloadSize is the largest payload the wire format allows.
	MaxPayloadSize = 1232
	// Size is the total on-wire size of a Packet, 8-byte aligned.
	Size = 1264
)

// Meta carries the out-of-band fields a NIC/kernel attaches to a
// received datagram: how much of Payload is valid, and where it came
// from. IsIPv4 mirrors the source socket address family — a dual-stack
// listener can hand back an IPv6 source, which the pipeline rejects
// outright rather than trying to represent in Addr's 4 bytes.
type Meta struct {
	Size   uint32
	Addr   [4]byte
	IsIPv4 bool
	Port   uint16
	Flags  uint16
}

// Packet is the fixed-size POD moved across rings. Only Payload[:Meta.Size]
// is meaningful; the remainder is undefined padding.
type Packet struct {
	Meta    Meta
	Payload [MaxPayloadSize]byte
	_       [2]uint64 // pads the struct to Size bytes with 8-byte alignment
}

// IPv4 returns the source address as a net.IP, for logging and
// SaveIPScores-style reporting.
func (m Meta) IPv4() net.IP {
	return net.IPv4(m.Addr[0], m.Addr[1], m.Addr[2], m.Addr[3])
}

// IPv4Uint32 packs the source address into the big-endian-octet/u32
// form used as the model's IP key. PacketHash takes the raw Addr
// octets instead.
func (m Meta) IPv4Uint32() uint32 {
	return uint32(m.Addr[0])<<24 | uint32(m.Addr[1])<<16 | uint32(m.Addr[2])<<8 | uint32(m.Addr[3])
}
