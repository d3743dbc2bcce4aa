package rt

import (
	"fmt"
	"net/netip"
	"time"
)

// ByteOrder selects how multi-byte values are laid out in wire data.
type ByteOrder int

const (
	Network ByteOrder = iota
	Big
	Little
	Host
)

func (bo ByteOrder) String() string {
	switch bo {
	case Big:
		return "Big"
	case Little:
		return "Little"
	case Host:
		return "Host"
	default:
		return "Network"
	}
}

// BitOrder selects how bit ranges are numbered within a bitfield.
type BitOrder int

const (
	LSB0 BitOrder = iota
	MSB0
)

// ReassemblerPolicy selects how a sink resolves overlapping writes.
type ReassemblerPolicy int

const (
	// PolicyFirst keeps the first-written bytes on overlap.
	PolicyFirst ReassemblerPolicy = iota
)

func (p ReassemblerPolicy) String() string { return "First" }

// Direction tags a port or connection side.
type Direction int

const (
	Originator Direction = iota
	Responder
	Both
	Undef
)

func (d Direction) String() string {
	switch d {
	case Originator:
		return "Originator"
	case Responder:
		return "Responder"
	case Both:
		return "Both"
	default:
		return "Undef"
	}
}

// Protocol tags a port's transport protocol.
type Protocol int

const (
	ProtoUndef Protocol = iota
	TCP
	UDP
	ICMP
)

func (p Protocol) String() string {
	switch p {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	case ICMP:
		return "icmp"
	default:
		return "undef"
	}
}

// Address is an IPv4 or IPv6 address.
type Address struct {
	addr netip.Addr
}

// AddressFrom parses a textual address.
func AddressFrom(s string) (Address, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return Address{}, InvalidArgument("cannot parse address %q", s)
	}
	return Address{addr: a}, nil
}

// AddressFromBytes builds an address from 4 (IPv4) or 16 (IPv6) bytes.
func AddressFromBytes(b []byte) (Address, error) {
	a, ok := netip.AddrFromSlice(b)
	if !ok {
		return Address{}, InvalidArgument("address needs 4 or 16 bytes, have %d", len(b))
	}
	return Address{addr: a}, nil
}

// IsIPv4 reports whether the address is IPv4.
func (a Address) IsIPv4() bool { return a.addr.Is4() }

// Pack returns the address's wire form: 4 bytes for IPv4, 16 for IPv6.
func (a Address) Pack() []byte {
	if a.addr.Is4() {
		b := a.addr.As4()
		return b[:]
	}
	b := a.addr.As16()
	return b[:]
}

func (a Address) String() string { return a.addr.String() }

// Compare orders addresses lexicographically on their 16-byte form.
func (a Address) Compare(b Address) int { return a.addr.Compare(b.addr) }

// CIDR is a CIDR prefix.
type CIDR struct {
	prefix netip.Prefix
}

// NetworkFrom parses "addr/len".
func NetworkFrom(s string) (CIDR, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return CIDR{}, InvalidArgument("cannot parse network %q", s)
	}
	return CIDR{prefix: p.Masked()}, nil
}

// Contains reports whether the network covers the address.
func (n CIDR) Contains(a Address) bool { return n.prefix.Contains(a.addr) }

// Length returns the prefix length.
func (n CIDR) Length() int { return n.prefix.Bits() }

func (n CIDR) String() string { return n.prefix.String() }

// Port is a transport port with protocol.
type Port struct {
	Port     uint16
	Protocol Protocol
}

func (p Port) String() string { return fmt.Sprintf("%d/%s", p.Port, p.Protocol) }

// Interval is a signed time span with nanosecond resolution.
type Interval struct {
	d time.Duration
}

// IntervalFromSeconds builds an interval from (possibly fractional) seconds.
func IntervalFromSeconds(secs float64) Interval {
	return Interval{d: time.Duration(secs * float64(time.Second))}
}

// IntervalFromNanos builds an interval from nanoseconds.
func IntervalFromNanos(ns int64) Interval { return Interval{d: time.Duration(ns)} }

// Seconds returns the interval in seconds.
func (i Interval) Seconds() float64 { return i.d.Seconds() }

// Nanoseconds returns the interval in nanoseconds.
func (i Interval) Nanoseconds() int64 { return i.d.Nanoseconds() }

// Add returns i + o.
func (i Interval) Add(o Interval) Interval { return Interval{d: i.d + o.d} }

// Sub returns i - o.
func (i Interval) Sub(o Interval) Interval { return Interval{d: i.d - o.d} }

// Compare orders intervals.
func (i Interval) Compare(o Interval) int {
	switch {
	case i.d < o.d:
		return -1
	case i.d > o.d:
		return 1
	}
	return 0
}

func (i Interval) String() string { return fmt.Sprintf("%.6fs", i.d.Seconds()) }

// Time is an absolute point in time with nanosecond resolution.
type Time struct {
	t time.Time
}

// TimeFromEpoch builds a time from seconds since the UNIX epoch.
func TimeFromEpoch(secs float64) Time {
	ns := int64(secs * 1e9)
	return Time{t: time.Unix(ns/1e9, ns%1e9).UTC()}
}

// TimeFromNanos builds a time from nanoseconds since the UNIX epoch.
func TimeFromNanos(ns uint64) Time {
	return Time{t: time.Unix(int64(ns/1e9), int64(ns%1e9)).UTC()}
}

// EpochSeconds returns seconds since the UNIX epoch.
func (t Time) EpochSeconds() float64 {
	return float64(t.t.UnixNano()) / 1e9
}

// Add shifts a time by an interval.
func (t Time) Add(i Interval) Time { return Time{t: t.t.Add(i.d)} }

// SubTime returns the interval between two times.
func (t Time) SubTime(o Time) Interval { return Interval{d: t.t.Sub(o.t)} }

// Compare orders times.
func (t Time) Compare(o Time) int {
	switch {
	case t.t.Before(o.t):
		return -1
	case t.t.After(o.t):
		return 1
	}
	return 0
}

func (t Time) String() string { return t.t.Format(time.RFC3339Nano) }
