package transfers

import (
	"time"

	"github.com/kevmo314/go-openmv/pkg/requests"
)

// Control issues the control stage of r and returns the data stage of an IN
// request. The returned slice may be shorter than r.Length; callers decide
// whether that is acceptable.
func Control(t Transport, r *requests.Request, timeout time.Duration) ([]byte, error) {
	var buf []byte
	if r.Type.In() && r.Length > 0 {
		buf = make([]byte, r.Length)
	}
	n, err := t.ControlTransfer(uint8(r.Type), uint8(r.Code), r.Value, r.Index, buf, timeout)
	if err != nil {
		return nil, &TransportError{Op: "control transfer", Code: r.Code, Err: err}
	}
	if n > len(buf) {
		n = len(buf)
	}
	return buf[:n], nil
}

// Execute issues r and, if it carries a payload, writes the payload to the
// OUT endpoint.
func Execute(t Transport, r *requests.Request, out uint8, timeout time.Duration) ([]byte, error) {
	resp, err := Control(t, r, timeout)
	if err != nil {
		return nil, err
	}
	if len(r.Payload) == 0 {
		return resp, nil
	}
	w := NewBulkWriter(t, out, timeout)
	if _, err := w.Write(r.Payload); err != nil {
		return nil, &TransportError{Op: "bulk write", Code: r.Code, Err: err}
	}
	return resp, nil
}
