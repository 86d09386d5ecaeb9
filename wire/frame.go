// Package wire defines the on-the-wire framing used by the L2 multi-queue
// transport over an L1 byte stream. All multi-byte fields are little-endian.
// A frame is always a 4-byte header, optionally followed by a body whose
// length and shape depend on the header.
package wire

import "encoding/binary"

// HeaderSize is the fixed size, in bytes, of every frame header.
const HeaderSize = 4

// Reserved wire-only queue identifiers. These never appear as array
// indices into a queue set; they distinguish control frames from data
// frames sharing the same qid byte.
const (
	QIDNoop   uint8 = 0xFF // keep-alive / padding, no body
	QIDCredit uint8 = 0xFE // credit grant, no body
)

// Header is the decoded form of a frame's 4-byte header, kept as the raw
// header bytes so Decode/Encode never have to choose a lossy internal
// representation. Interpretation depends on QID:
//
//   - QID == QIDNoop: keep-alive, no body, B1/B2/B3 unused.
//   - QID == QIDCredit: B1 is the target qid, B2:B3 is the credit count
//     (little-endian u16).
//   - otherwise: a data batch for queue QID. B1:B2 is the item count
//     (little-endian u16), B3 is the informational declared item width.
type Header struct {
	QID    uint8
	B1, B2 uint8
	B3     uint8
}

// IsNoop reports whether h is a keep-alive frame.
func (h Header) IsNoop() bool { return h.QID == QIDNoop }

// IsCredit reports whether h is a credit-grant frame.
func (h Header) IsCredit() bool { return h.QID == QIDCredit }

// CreditQID returns the target qid of a credit-grant header. Only valid
// when IsCredit() is true.
func (h Header) CreditQID() uint8 { return h.B1 }

// CreditAmount returns the granted credit count of a credit-grant header.
// Only valid when IsCredit() is true.
func (h Header) CreditAmount() uint16 { return uint16(h.B2) | uint16(h.B3)<<8 }

// DataCount returns the item count of a data-batch header. Only valid
// when h is neither a noop nor a credit frame.
func (h Header) DataCount() uint16 { return uint16(h.B1) | uint16(h.B2)<<8 }

// DataWidth returns the informational item width of a data-batch header.
// The receiver's own declared width is authoritative; this value is
// carried for diagnostics only.
func (h Header) DataWidth() uint8 { return h.B3 }

// EncodeNoop writes a keep-alive header into buf, which must be at least
// HeaderSize bytes.
func EncodeNoop(buf []byte) {
	buf[0], buf[1], buf[2], buf[3] = QIDNoop, 0, 0, 0
}

// EncodeCredit writes a credit-grant header into buf, which must be at
// least HeaderSize bytes.
func EncodeCredit(buf []byte, qid uint8, credits uint16) {
	buf[0] = QIDCredit
	buf[1] = qid
	binary.LittleEndian.PutUint16(buf[2:4], credits)
}

// EncodeDataHeader writes a data-batch header into buf, which must be at
// least HeaderSize bytes.
func EncodeDataHeader(buf []byte, qid uint8, n uint16, widthBytes uint8) {
	buf[0] = qid
	binary.LittleEndian.PutUint16(buf[1:3], n)
	buf[3] = widthBytes
}

// Decode parses a 4-byte frame header. buf must be at least HeaderSize
// bytes; only the first HeaderSize bytes are consumed.
func Decode(buf []byte) Header {
	return Header{
		QID: buf[0],
		B1:  buf[1],
		B2:  buf[2],
		B3:  buf[3],
	}
}
