// Package tracking implements TrackingWriter: an io.Writer that forwards
// bytes to an underlying sink while maintaining a bounded sliding window
// (for LZ77 back-references), a running CRC-32, and a byte counter.
package tracking

import (
	"fmt"
	"hash/crc32"
	"io"
)

// WindowSize is the maximum distance a back-reference may look behind the
// current output position (RFC 1951 §2.2).
const WindowSize = 32768

// ErrDistanceTooFar means a back-reference's distance exceeds the amount of
// history currently held in the window.
var ErrDistanceTooFar = fmt.Errorf("tracking: back-reference distance exceeds window size")

// Writer forwards writes to an underlying io.Writer while keeping the last
// WindowSize bytes for WritePrevious, a running CRC-32/ISO-HDLC digest, and
// a count of bytes accepted since the last Clear.
type Writer struct {
	dst    io.Writer
	window []byte // bounded to WindowSize, oldest first
	crc    uint32
	count  uint32
}

// NewWriter wraps dst with window/CRC/counter tracking.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst, crc: 0}
}

// Write forwards p to the underlying writer, tolerating short writes: only
// the bytes actually accepted update the CRC, the counter, and the window.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	if n > 0 {
		accepted := p[:n]
		w.crc = crc32.Update(w.crc, crc32.IEEETable, accepted)
		w.count += uint32(n)
		w.appendWindow(accepted)
	}
	return n, err
}

func (w *Writer) appendWindow(p []byte) {
	w.window = append(w.window, p...)
	if len(w.window) > WindowSize {
		w.window = w.window[len(w.window)-WindowSize:]
	}
}

// WritePrevious copies len bytes from dist bytes behind the current output
// position into the stream (an LZ77 back-reference), and tracks the result
// exactly as Write would: the window, CRC, and counter only ever advance
// by the bytes the sink actually accepts, so a short or failed write never
// leaves them referring to output the sink never received. dist may be
// less than len, in which case the copy must observe bytes it has itself
// just produced (an overlapping copy) rather than read a frozen snapshot
// of the window — buf is built entirely from w.window and from earlier
// positions within buf itself, before anything is written or the window
// is touched.
func (w *Writer) WritePrevious(dist, length int) error {
	if dist <= 0 || dist > len(w.window) {
		return ErrDistanceTooFar
	}
	start := len(w.window) - dist
	buf := make([]byte, length)
	for i := 0; i < length; i++ {
		if start+i < len(w.window) {
			buf[i] = w.window[start+i]
		} else {
			buf[i] = buf[start+i-len(w.window)]
		}
	}

	n, err := w.dst.Write(buf)
	if n > 0 {
		accepted := buf[:n]
		w.crc = crc32.Update(w.crc, crc32.IEEETable, accepted)
		w.count += uint32(n)
		w.appendWindow(accepted)
	}
	return err
}

// CRC32 returns the running CRC-32/ISO-HDLC digest of every byte accepted
// since the last Clear, without affecting further writes.
func (w *Writer) CRC32() uint32 {
	return w.crc
}

// ByteCount returns the number of bytes accepted since the last Clear,
// truncated to 32 bits (RFC 1952's ISIZE field is the input size mod 2^32).
func (w *Writer) ByteCount() uint32 {
	return w.count
}

// Clear resets the window, CRC, and byte counter, as done between gzip
// members.
func (w *Writer) Clear() {
	w.window = nil
	w.crc = 0
	w.count = 0
}
