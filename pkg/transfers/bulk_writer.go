package transfers

import (
	"time"
)

type BulkWriter struct {
	t        Transport
	endpoint uint8
	timeout  time.Duration
}

func NewBulkWriter(t Transport, endpoint uint8, timeout time.Duration) *BulkWriter {
	return &BulkWriter{t: t, endpoint: endpoint, timeout: timeout}
}

// Write sends buf in as many bulk transfers as the host controller needs.
func (w *BulkWriter) Write(buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		n, err := w.t.BulkTransfer(w.endpoint, buf[written:], w.timeout)
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, ErrShortTransfer
		}
	}
	return written, nil
}
