package transfers

import (
	"fmt"
	"io"
	"time"
)

const DefaultChunkSize = 16 * 1024

// BulkReader reads from a bulk IN endpoint in chunks of at most mtu bytes.
type BulkReader struct {
	t        Transport
	endpoint uint8
	mtu      int
	timeout  time.Duration
}

func NewBulkReader(t Transport, endpoint uint8, mtu int, timeout time.Duration) *BulkReader {
	if mtu <= 0 {
		mtu = DefaultChunkSize
	}
	return &BulkReader{t: t, endpoint: endpoint, mtu: mtu, timeout: timeout}
}

// Read issues a single bulk transfer. A transfer that completes with no data
// is reported as ErrShortTransfer so that io.ReadFull does not spin.
func (r *BulkReader) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if len(buf) > r.mtu {
		buf = buf[:r.mtu]
	}
	n, err := r.t.BulkTransfer(r.endpoint, buf, r.timeout)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrShortTransfer
	}
	return n, nil
}

// ReadN reads exactly n bytes or fails.
func (r *BulkReader) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if got, err := io.ReadFull(r, buf); err != nil {
		return nil, &TransportError{Op: "bulk read", Err: fmt.Errorf("read %d of %d bytes: %w", got, n, err)}
	}
	return buf, nil
}
