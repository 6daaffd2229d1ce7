package transfer

import (
	"bytes"
	"testing"

	"github.com/csat-sub002/imagering"
)

// fakeOutputStream accumulates bytes written to it and records whether
// Finalize was called.
type fakeOutputStream struct {
	buf       bytes.Buffer
	finalized bool
}

func (f *fakeOutputStream) Write(data []byte) error {
	f.buf.Write(data)
	return nil
}

func (f *fakeOutputStream) Finalize() error {
	f.finalized = true
	return nil
}

// answerReads serves every pending read request against source, a flat
// byte slice, in ProtocolChunkCap pieces, terminating each file with a
// zero-length OK response once offset reaches len(source).
func answerReads(t *testing.T, bus *MemBus, source []byte) {
	t.Helper()
	rsrc := bus.ReadSourceFor(serverNode)
	for {
		req, handle, ok := rsrc.NextReadRequest()
		if !ok {
			return
		}
		if req.Offset >= uint64(len(source)) {
			if err := handle.Respond(ReadResponse{Error: imagering.WireOK}); err != nil {
				t.Fatalf("Respond: %v", err)
			}
			continue
		}
		end := req.Offset + uint64(imagering.ProtocolChunkCap)
		if end > uint64(len(source)) {
			end = uint64(len(source))
		}
		chunk := source[req.Offset:end]
		if err := handle.Respond(ReadResponse{Data: chunk, Error: imagering.WireOK}); err != nil {
			t.Fatalf("Respond: %v", err)
		}
	}
}

func TestReaderClientFullLifecycle(t *testing.T) {
	bus := NewMemBus()
	r := NewReaderClient(bus, serverNode, nil)

	source := bytes.Repeat([]byte("xyz"), 200) // larger than one chunk cap
	out := &fakeOutputStream{}
	var path [imagering.NameLength]byte
	copy(path[:], "0000000000000000_00")

	if err := r.Start(path, out, imagering.ProtocolChunkCap); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 64 && r.State() != ReaderIdle; i++ {
		if err := r.Tick(); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		answerReads(t, bus, source)
	}

	if r.State() != ReaderIdle {
		t.Fatalf("final state = %v, want IDLE", r.State())
	}
	if !out.finalized {
		t.Fatalf("OutputStream was never finalized")
	}
	if !bytes.Equal(out.buf.Bytes(), source) {
		t.Fatalf("reassembled %d bytes, want %d matching source", out.buf.Len(), len(source))
	}
	if r.IsIdle() != true {
		t.Fatalf("IsIdle() = false after completion")
	}
}

func TestReaderClientStartWhileBusy(t *testing.T) {
	bus := NewMemBus()
	r := NewReaderClient(bus, serverNode, nil)
	var path [imagering.NameLength]byte

	if err := r.Start(path, &fakeOutputStream{}, 64); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := r.Start(path, &fakeOutputStream{}, 64); err != ErrReaderBusy {
		t.Fatalf("second Start = %v, want ErrReaderBusy", err)
	}
}

func TestReaderClientResendsOnErrorResponse(t *testing.T) {
	bus := NewMemBus()
	r := NewReaderClient(bus, serverNode, nil)
	var path [imagering.NameLength]byte

	if err := r.Start(path, &fakeOutputStream{}, 64); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Tick(); err != nil { // SEND_REQUEST -> WAIT_RESPONSE
		t.Fatalf("Tick: %v", err)
	}
	if r.State() != ReaderWaitResponse {
		t.Fatalf("state = %v, want WAIT_RESPONSE", r.State())
	}

	rsrc := bus.ReadSourceFor(serverNode)
	_, handle, ok := rsrc.NextReadRequest()
	if !ok {
		t.Fatalf("no pending read request")
	}
	if err := handle.Respond(ReadResponse{Error: imagering.WireIOError}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if err := r.Respond(); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if r.State() != ReaderResendRequest {
		t.Fatalf("state after error response = %v, want RESEND_REQUEST", r.State())
	}
}
