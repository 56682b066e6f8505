package openmv

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/jpeg"
	"syscall"
	"testing"
	"time"

	"github.com/kevmo314/go-openmv/pkg/decode"
	"github.com/kevmo314/go-openmv/pkg/descriptors"
	"github.com/kevmo314/go-openmv/pkg/requests"
	usb "github.com/kevmo314/go-usb"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type transfer struct {
	requestType uint8
	request     uint8
	value       uint16
	index       uint16
	endpoint    uint8
	bulk        bool
	length      int
}

// mockTransport plays the firmware side of the protocol. Control handlers are
// keyed by request code; requests without a handler succeed with no data.
type mockTransport struct {
	transfers []transfer
	control   map[requests.RequestCode]func(value uint16, data []byte) (int, error)
	bulkIn    []byte
	bulkOut   []byte
	bulkErr   error
}

func newMockTransport() *mockTransport {
	return &mockTransport{control: map[requests.RequestCode]func(uint16, []byte) (int, error){}}
}

func (m *mockTransport) ControlTransfer(requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error) {
	m.transfers = append(m.transfers, transfer{requestType: requestType, request: request, value: value, index: index, length: len(data)})
	if h, ok := m.control[requests.RequestCode(request)]; ok {
		return h(value, data)
	}
	return 0, nil
}

func (m *mockTransport) BulkTransfer(endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	m.transfers = append(m.transfers, transfer{endpoint: endpoint, bulk: true, length: len(data)})
	if m.bulkErr != nil {
		return 0, m.bulkErr
	}
	if endpoint&0x80 != 0 {
		n := copy(data, m.bulkIn)
		m.bulkIn = m.bulkIn[n:]
		return n, nil
	}
	m.bulkOut = append(m.bulkOut, data...)
	return len(data), nil
}

func (m *mockTransport) controls() []transfer {
	var out []transfer
	for _, t := range m.transfers {
		if !t.bulk {
			out = append(out, t)
		}
	}
	return out
}

func (m *mockTransport) bulkReads() []transfer {
	var out []transfer
	for _, t := range m.transfers {
		if t.bulk && t.endpoint&0x80 != 0 {
			out = append(out, t)
		}
	}
	return out
}

func respond(buf []byte) func(uint16, []byte) (int, error) {
	return func(_ uint16, data []byte) (int, error) {
		return copy(data, buf), nil
	}
}

func fail(err error) func(uint16, []byte) (int, error) {
	return func(uint16, []byte) (int, error) {
		return 0, err
	}
}

func sizeHeader(w, h, format uint32) []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:4], w)
	binary.LittleEndian.PutUint32(buf[4:8], h)
	binary.LittleEndian.PutUint32(buf[8:12], format)
	return buf
}

// frameTransport serves a granted lock, the given header and payload.
func frameTransport(w, h, format uint32, payload []byte) *mockTransport {
	m := newMockTransport()
	m.control[requests.RequestCodeFrameLock] = respond([]byte{1})
	m.control[requests.RequestCodeFrameSize] = respond(sizeHeader(w, h, format))
	m.bulkIn = payload
	return m
}

func TestReadFrameNotReady(t *testing.T) {
	m := newMockTransport()
	m.control[requests.RequestCodeFrameLock] = respond([]byte{0})
	d := NewDevice(m)

	frame, err := d.ReadFrame(context.Background())
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("ReadFrame() error = %v, want ErrNotReady", err)
	}
	if frame != nil {
		t.Errorf("ReadFrame() frame = %v, want nil", frame)
	}
	if len(m.transfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(m.transfers))
	}
	lock := m.transfers[0]
	if lock.requestType != 0xC1 || lock.request != 3 || lock.length != 1 {
		t.Errorf("lock transfer = %+v, want type 0xc1 code 3 length 1", lock)
	}
	if d.State() != StateIdle {
		t.Errorf("State() = %s, want idle", d.State())
	}
}

func TestReadFrameRGB565(t *testing.T) {
	words := make([]uint16, 160*120)
	payload := make([]byte, 2*len(words))
	for i := range words {
		words[i] = uint16(i * 40503)
		binary.BigEndian.PutUint16(payload[2*i:], words[i])
	}
	m := frameTransport(160, 120, 2, payload)
	d := NewDevice(m)

	frame, err := d.ReadFrame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if frame.Width != 160 || frame.Height != 120 || frame.Format != 2 {
		t.Errorf("frame = %dx%d format %d, want 160x120 format 2", frame.Width, frame.Height, frame.Format)
	}
	if len(frame.Pix) != 160*120*3 {
		t.Errorf("len(Pix) = %d, want %d", len(frame.Pix), 160*120*3)
	}
	for i, p := range words {
		r, g, b := decode.RGB565(p)
		x, y := i%160, i/160
		if c := frame.RGBAAt(x, y); c.R != r || c.G != g || c.B != b {
			t.Fatalf("RGBAAt(%d, %d) = %v, want (%d, %d, %d) for 0x%04x", x, y, c, r, g, b, p)
		}
	}

	controls := m.controls()
	if len(controls) != 3 {
		t.Fatalf("got %d control transfers, want 3", len(controls))
	}
	wantCodes := []uint8{3, 1, 2}
	for i, c := range controls {
		if c.request != wantCodes[i] {
			t.Errorf("control %d code = %d, want %d", i, c.request, wantCodes[i])
		}
		if c.requestType != 0xC1 {
			t.Errorf("control %d type = 0x%02x, want 0xc1", i, c.requestType)
		}
	}
	if controls[2].value != 9600 || controls[2].length != 0 {
		t.Errorf("dump value = %d length = %d, want 9600 and 0", controls[2].value, controls[2].length)
	}

	reads := m.bulkReads()
	total := 0
	for _, r := range reads {
		if r.endpoint != EndpointIn {
			t.Errorf("bulk read on 0x%02x, want 0x%02x", r.endpoint, EndpointIn)
		}
		total += r.length
	}
	if len(reads) != 3 || total != 38400 {
		t.Errorf("got %d bulk reads totalling %d bytes, want 3 totalling 38400", len(reads), total)
	}
	if d.State() != StateDone {
		t.Errorf("State() = %s, want done", d.State())
	}
}

func TestReadRawFrameJPEGLength(t *testing.T) {
	payload := make([]byte, 5000)
	m := frameTransport(320, 240, 4096, payload)
	d := NewDevice(m)

	rf, err := d.ReadRawFrame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rf.Data) != 4096 {
		t.Errorf("len(Data) = %d, want 4096", len(rf.Data))
	}
	if len(m.bulkIn) != 904 {
		t.Errorf("%d bytes left unread, want 904", len(m.bulkIn))
	}
	if !rf.Size.Compressed() {
		t.Error("Compressed() = false, want true")
	}
	if dump := m.controls()[2]; dump.value != 1024 {
		t.Errorf("dump value = %d, want 1024", dump.value)
	}
}

func TestReadFrameGrayscale(t *testing.T) {
	payload := []byte{0, 50, 100, 150, 200, 250, 255, 1}
	d := NewDevice(frameTransport(4, 2, 1, payload))

	frame, err := d.ReadFrame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, y := range payload {
		got := frame.Pix[i*3 : i*3+3]
		if got[0] != y || got[1] != y || got[2] != y {
			t.Errorf("pixel %d = %v, want (%d, %d, %d)", i, got, y, y, y)
		}
	}
}

func TestReadFrameMalformedSize(t *testing.T) {
	m := newMockTransport()
	m.control[requests.RequestCodeFrameLock] = respond([]byte{1})
	m.control[requests.RequestCodeFrameSize] = respond(make([]byte, 8))
	d := NewDevice(m)

	_, err := d.ReadFrame(context.Background())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("ReadFrame() error = %v, want ErrMalformedResponse", err)
	}
	var mre *MalformedResponseError
	if !errors.As(err, &mre) {
		t.Fatalf("error %T is not a *MalformedResponseError", err)
	}
	if mre.Got != 8 || mre.Want != 12 || mre.Code != requests.RequestCodeFrameSize {
		t.Errorf("MalformedResponseError = %+v, want frame size 8 of 12", mre)
	}
	if len(m.bulkReads()) != 0 {
		t.Error("bulk read issued after a malformed header")
	}
	if d.State() != StateIdle {
		t.Errorf("State() = %s, want idle", d.State())
	}
}

func TestReadFrameInvalidFormat(t *testing.T) {
	d := NewDevice(frameTransport(160, 120, 0, nil))

	if _, err := d.ReadFrame(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("ReadFrame() error = %v, want ErrMalformedResponse", err)
	}
}

func TestReadFrameOverflowingHeader(t *testing.T) {
	tests := []struct {
		name    string
		w, h, f uint32
	}{
		// 4294901761*2147516416*2 wraps to 65536 in 64 bits
		{"wraps 64 bits", 4294901761, 2147516416, 2},
		// 65536*65536 wraps to 0 in 32 bits
		{"wraps 32 bits", 65536, 65536, 1},
		{"exceeds int32", 0xFFFFFFFF, 0xFFFFFFFF, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := frameTransport(tt.w, tt.h, tt.f, make([]byte, 65536))
			d := NewDevice(m)

			frame, err := d.ReadFrame(context.Background())
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("ReadFrame() error = %v, want ErrMalformedResponse", err)
			}
			if !errors.Is(err, descriptors.ErrPayloadOverflow) {
				t.Errorf("ReadFrame() error = %v, want ErrPayloadOverflow", err)
			}
			if frame != nil {
				t.Errorf("ReadFrame() frame = %v, want nil", frame)
			}
			if n := len(m.controls()); n != 2 {
				t.Errorf("got %d control transfers, want lock and size only", n)
			}
			if n := len(m.bulkReads()); n != 0 {
				t.Errorf("got %d bulk reads, want 0", n)
			}
			if d.State() != StateIdle {
				t.Errorf("State() = %s, want idle", d.State())
			}
		})
	}
}

func TestReadFrameShortBulkRead(t *testing.T) {
	d := NewDevice(frameTransport(160, 120, 2, make([]byte, 100)))

	_, err := d.ReadFrame(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("ReadFrame() error = %v, want ErrTransport", err)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "bulk read" {
		t.Errorf("error = %v, want a bulk read TransportError", err)
	}
}

func TestReadFrameBulkTimeout(t *testing.T) {
	m := frameTransport(160, 120, 2, nil)
	m.bulkErr = usb.ErrTimeout
	d := NewDevice(m)

	_, err := d.ReadFrame(context.Background())
	if !errors.Is(err, ErrTransport) || !errors.Is(err, usb.ErrTimeout) {
		t.Errorf("ReadFrame() error = %v, want ErrTransport wrapping usb.ErrTimeout", err)
	}
}

func TestReadFrameCorruptJPEG(t *testing.T) {
	d := NewDevice(frameTransport(320, 240, 16, make([]byte, 16)))

	if _, err := d.ReadFrame(context.Background()); !errors.Is(err, ErrCorruptImage) {
		t.Errorf("ReadFrame() error = %v, want ErrCorruptImage", err)
	}
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadFrameJPEG(t *testing.T) {
	payload := encodeJPEG(t, 320, 240)
	m := frameTransport(320, 240, uint32(len(payload)), payload)
	d := NewDevice(m)

	frame, err := d.ReadFrame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b := frame.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("Bounds() = %v, want 320x240", b)
	}
	if len(frame.Pix) != 230400 {
		t.Errorf("len(Pix) = %d, want 230400", len(frame.Pix))
	}
	if c := frame.RGBAAt(160, 120); c.R < 0x78 || c.R > 0x88 || c.G < 0x78 || c.G > 0x88 || c.B < 0x78 || c.B > 0x88 {
		t.Errorf("RGBAAt(160, 120) = %v, want about mid gray", c)
	}
	controls := m.controls()
	if len(controls) != 3 || int(controls[2].value) != len(payload)/4 {
		t.Errorf("dump transfers = %+v, want value %d", controls, len(payload)/4)
	}
}

func TestReadFrameSizeMismatch(t *testing.T) {
	payload := encodeJPEG(t, 16, 16)
	d := NewDevice(frameTransport(32, 16, uint32(len(payload)), payload))

	if _, err := d.ReadFrame(context.Background()); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("ReadFrame() error = %v, want ErrSizeMismatch", err)
	}
	if d.State() != StateIdle {
		t.Errorf("State() = %s, want idle", d.State())
	}
}

func TestLockFrameAndFrameSize(t *testing.T) {
	m := frameTransport(80, 60, 1, nil)
	d := NewDevice(m)

	ok, err := d.LockFrame(context.Background())
	if err != nil || !ok {
		t.Fatalf("LockFrame() = %v, %v, want true, nil", ok, err)
	}
	size, err := d.FrameSize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := descriptors.FrameSizeDescriptor{Width: 80, Height: 60, Format: 1}
	if *size != want {
		t.Errorf("FrameSize() = %+v, want %+v", *size, want)
	}
	if d.State() != StateIdle {
		t.Errorf("State() = %s, want idle", d.State())
	}
}

func TestExecScript(t *testing.T) {
	m := newMockTransport()
	d := NewDevice(m)
	script := []byte("print('hi')\n")

	if err := d.ExecScript(context.Background(), script); err != nil {
		t.Fatal(err)
	}
	if len(m.transfers) != 2 {
		t.Fatalf("got %d transfers, want 2", len(m.transfers))
	}
	c := m.transfers[0]
	if c.requestType != 0x41 || c.request != 5 || c.value != uint16(len(script)) || c.index != 0 {
		t.Errorf("control = %+v, want type 0x41 code 5 value %d", c, len(script))
	}
	if b := m.transfers[1]; !b.bulk || b.endpoint != EndpointOut {
		t.Errorf("second transfer = %+v, want bulk write on 0x01", b)
	}
	if !bytes.Equal(m.bulkOut, script) {
		t.Errorf("bulk payload = %q, want %q", m.bulkOut, script)
	}
}

func TestSaveTemplate(t *testing.T) {
	m := newMockTransport()
	d := NewDevice(m)
	region := &descriptors.RegionDescriptor{X: 10, Y: 20, W: 30, H: 40, Path: "/t.pgm"}

	if err := d.SaveTemplate(context.Background(), region); err != nil {
		t.Fatal(err)
	}
	want := []byte{
		10, 0, 0, 0,
		20, 0, 0, 0,
		30, 0, 0, 0,
		40, 0, 0, 0,
		'/', 't', '.', 'p', 'g', 'm',
	}
	if !bytes.Equal(m.bulkOut, want) {
		t.Errorf("payload = %v, want %v", m.bulkOut, want)
	}
	if c := m.transfers[0]; c.request != 8 || c.value != 22 {
		t.Errorf("control code = %d value = %d, want 8 and 22", c.request, c.value)
	}
}

func TestSaveDescriptor(t *testing.T) {
	m := newMockTransport()
	d := NewDevice(m)

	if err := d.SaveDescriptor(context.Background(), &descriptors.RegionDescriptor{Path: "/d"}); err != nil {
		t.Fatal(err)
	}
	if c := m.transfers[0]; c.request != 9 || c.value != 18 {
		t.Errorf("control code = %d value = %d, want 9 and 18", c.request, c.value)
	}
}

func TestSetAttribute(t *testing.T) {
	tests := []struct {
		attr  descriptors.Attribute
		value int
		want  uint16
	}{
		{descriptors.AttributeContrast, -1, 0x00FF},
		{descriptors.AttributeGainCeiling, 127, 0x037F},
		{descriptors.AttributeBrightness, 0, 0x0100},
		{descriptors.AttributeSaturation, -128, 0x0280},
	}
	for _, tt := range tests {
		m := newMockTransport()
		d := NewDevice(m)
		if err := d.SetAttribute(context.Background(), tt.attr, tt.value); err != nil {
			t.Fatal(err)
		}
		c := m.transfers[0]
		if c.requestType != 0x41 || c.request != 11 || c.value != tt.want {
			t.Errorf("SetAttribute(%s, %d) sent type 0x%02x code %d value 0x%04x, want 0x41 11 0x%04x",
				tt.attr, tt.value, c.requestType, c.request, c.value, tt.want)
		}
	}
}

func TestSetAttributeOutOfRange(t *testing.T) {
	m := newMockTransport()
	d := NewDevice(m)

	if err := d.SetAttribute(context.Background(), descriptors.AttributeBrightness, 200); !errors.Is(err, ErrAttributeRange) {
		t.Errorf("SetAttribute() error = %v, want ErrAttributeRange", err)
	}
	if len(m.transfers) != 0 {
		t.Errorf("got %d transfers, want none", len(m.transfers))
	}
}

func TestGetAttribute(t *testing.T) {
	m := newMockTransport()
	m.control[requests.RequestCodeAttrRead] = respond([]byte{0xFE})
	d := NewDevice(m)

	v, err := d.GetAttribute(context.Background(), descriptors.AttributeSaturation)
	if err != nil {
		t.Fatal(err)
	}
	if v != -2 {
		t.Errorf("GetAttribute() = %d, want -2", v)
	}
	c := m.transfers[0]
	if c.requestType != 0xC1 || c.request != 10 || c.value != 2 || c.length != 1 {
		t.Errorf("control = %+v, want type 0xc1 code 10 value 2 length 1", c)
	}
}

func TestFrameUpdateAndStopScript(t *testing.T) {
	m := newMockTransport()
	d := NewDevice(m)

	if err := d.FrameUpdate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.StopScript(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.transfers[0].request != 4 || m.transfers[1].request != 6 {
		t.Errorf("codes = %d, %d, want 4, 6", m.transfers[0].request, m.transfers[1].request)
	}
}

func TestResetSwallowsTimeout(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	m := newMockTransport()
	m.control[requests.RequestCodeSysReset] = fail(usb.ErrTimeout)
	d := NewDevice(m, WithLogger(logger))

	if err := d.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v, want nil", err)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.DebugLevel {
		t.Errorf("last log entry = %v, want a debug entry", entry)
	}
	if _, err := d.ReadFrame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadFrame() after Reset error = %v, want ErrClosed", err)
	}
}

func TestEnterBootloaderSwallowsDisconnect(t *testing.T) {
	m := newMockTransport()
	m.control[requests.RequestCodeSysBoot] = fail(syscall.ENODEV)
	d := NewDevice(m)

	if err := d.EnterBootloader(context.Background()); err != nil {
		t.Fatalf("EnterBootloader() error = %v, want nil", err)
	}
	if c := m.transfers[0]; c.requestType != 0x41 || c.request != 13 {
		t.Errorf("control = %+v, want type 0x41 code 13", c)
	}
}

func TestResetSurfacesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	m := newMockTransport()
	m.control[requests.RequestCodeSysReset] = fail(boom)
	d := NewDevice(m)

	err := d.Reset(context.Background())
	if !errors.Is(err, boom) || !errors.Is(err, ErrTransport) {
		t.Fatalf("Reset() error = %v, want a TransportError wrapping boom", err)
	}
	if err := d.FrameUpdate(context.Background()); err != nil {
		t.Errorf("FrameUpdate() after failed Reset error = %v, want nil", err)
	}
}

func TestClosed(t *testing.T) {
	m := newMockTransport()
	d := NewDevice(m)

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if _, err := d.ReadFrame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadFrame() error = %v, want ErrClosed", err)
	}
	if err := d.ExecScript(context.Background(), []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("ExecScript() error = %v, want ErrClosed", err)
	}
	if _, err := d.GetAttribute(context.Background(), descriptors.AttributeContrast); !errors.Is(err, ErrClosed) {
		t.Errorf("GetAttribute() error = %v, want ErrClosed", err)
	}
	if len(m.transfers) != 0 {
		t.Errorf("got %d transfers after Close, want none", len(m.transfers))
	}
}

func TestCanceledContext(t *testing.T) {
	m := frameTransport(4, 2, 1, make([]byte, 8))
	d := NewDevice(m)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.ReadFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadFrame() error = %v, want context.Canceled", err)
	}
	if len(m.transfers) != 0 {
		t.Errorf("got %d transfers, want none", len(m.transfers))
	}
}

func TestOptions(t *testing.T) {
	d := NewDevice(newMockTransport(),
		WithVendorProduct(0x1234, 0x5678),
		WithInterface(2, 0),
		WithEndpoints(0x83, 0x03),
		WithTimeout(-1),
		WithChunkSize(512),
	)
	o := d.Options()
	if o.VendorID != 0x1234 || o.ProductID != 0x5678 {
		t.Errorf("vid:pid = %04x:%04x, want 1234:5678", o.VendorID, o.ProductID)
	}
	if o.Interface != 2 || o.AltSetting != 0 || o.EndpointIn != 0x83 || o.EndpointOut != 0x03 {
		t.Errorf("options = %+v", o)
	}
	if o.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %s, want %s", o.Timeout, DefaultTimeout)
	}
	if o.ChunkSize != 512 {
		t.Errorf("ChunkSize = %d, want 512", o.ChunkSize)
	}
}

func TestInterfaceIndex(t *testing.T) {
	m := newMockTransport()
	m.control[requests.RequestCodeFrameLock] = respond([]byte{0})
	d := NewDevice(m, WithInterface(3, 1))

	d.ReadFrame(context.Background())
	if m.transfers[0].index != 3 {
		t.Errorf("wIndex = %d, want 3", m.transfers[0].index)
	}
}
