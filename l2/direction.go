package l2

// Direction identifies which side of the link a queue carries traffic
// for: host-to-FPGA or FPGA-to-host.
type Direction uint8

const (
	// DirH2F is a host-to-FPGA queue. The host is the producer; credits_I
	// tracks authorization-remaining granted by the peer.
	DirH2F Direction = iota
	// DirF2H is an FPGA-to-host queue. The host is the consumer;
	// credits_I tracks owed-but-unreported credit grants to the peer.
	DirF2H
)

func (d Direction) String() string {
	switch d {
	case DirH2F:
		return "H2F"
	case DirF2H:
		return "F2H"
	default:
		return "unknown"
	}
}
