package transfer

import (
	"github.com/csat-sub002/imagering"
	"github.com/csat-sub002/imagering/internal/logging"
	"github.com/csat-sub002/imagering/internal/testutil"
)

// ImageSource is the narrow slice of stream.ImageInputStream's API that
// WriterClient drives. Defining it here (rather than importing package
// stream) keeps the state machine decoupled from the concrete source, the
// same way storage.Accessor decouples the ring buffer from a concrete
// medium.
type ImageSource interface {
	IsEmpty() bool
	Initialize(buf []byte) (int, error)
	Size() uint32
	Name() [imagering.NameLength]byte
	GetChunk(buf []byte) (int, error)
}

// WriterState names a state in WriterClient's tagged-variant state
// machine.
type WriterState int

const (
	WriterIdle WriterState = iota
	WriterSendInit
	WriterWaitInit
	WriterResendInit
	WriterSendTransfer
	WriterWaitTransfer
	WriterResendTransfer
	WriterSendDone
	WriterWaitDone
	WriterResendDone
)

func (s WriterState) String() string {
	switch s {
	case WriterIdle:
		return "IDLE"
	case WriterSendInit:
		return "SEND_INIT"
	case WriterWaitInit:
		return "WAIT_INIT"
	case WriterResendInit:
		return "RESEND_INIT"
	case WriterSendTransfer:
		return "SEND_TRANSFER"
	case WriterWaitTransfer:
		return "WAIT_TRANSFER"
	case WriterResendTransfer:
		return "RESEND_TRANSFER"
	case WriterSendDone:
		return "SEND_DONE"
	case WriterWaitDone:
		return "WAIT_DONE"
	case WriterResendDone:
		return "RESEND_DONE"
	default:
		return "UNKNOWN"
	}
}

// pendingChunk is the last request body WriterClient emitted, cached so
// a RESEND_* transition can retransmit it verbatim without advancing
// the stream cursor.
type pendingChunk struct {
	offset uint64
	data   []byte
}

// WriterClient drains an ImageSource over the remote Write RPC. It is
// driven by periodic ticks: each tick calls Respond (drains one pending
// response if any) then Request (emits at most one new request if the
// state warrants). Retries are unbounded at this layer; higher-level
// supervision may abort.
type WriterClient struct {
	transport WriteTransport
	node      NodeID
	stream    ImageSource
	logger    logging.Logger

	state      WriterState
	pendingID  TransferID
	pending    pendingChunk
	name       [imagering.NameLength]byte
	totalSize  uint32
	sentOffset uint64
}

// NewWriterClient constructs a WriterClient that will drain src to node
// over transport once src becomes non-empty.
func NewWriterClient(transport WriteTransport, node NodeID, src ImageSource, logger logging.Logger) *WriterClient {
	return &WriterClient{
		transport: transport,
		node:      node,
		stream:    src,
		logger:    logging.OrDefault(logger),
		state:     WriterIdle,
	}
}

// State returns the machine's current state.
func (w *WriterClient) State() WriterState { return w.state }

// Tick drains one pending response (if any) and then emits one new
// request (if the state warrants). It never blocks; the periodic
// scheduler provides the pacing.
func (w *WriterClient) Tick() error {
	if err := w.Respond(); err != nil {
		return err
	}
	return w.Request()
}

// Respond drains one pending response appropriate to the current WAIT_*
// state, transitioning to the next SEND_* or RESEND_* state. It is a
// no-op outside a WAIT_* state or when no response has arrived yet.
func (w *WriterClient) Respond() error {
	switch w.state {
	case WriterWaitInit:
		resp, ok, err := w.transport.PollWrite(w.pendingID)
		if !ok {
			return err
		}
		if err != nil || resp.Error != imagering.WireOK {
			w.state = WriterResendInit
			return nil
		}
		w.sentOffset = uint64(len(w.pending.data))
		// A metadata-only stream is fully sent by the init chunk; going
		// through SEND_TRANSFER would hand the stream a zero-length read,
		// which it treats as the end-of-stream sentinel and pops the
		// image before the peer has acknowledged it.
		if w.sentOffset >= uint64(w.totalSize) {
			w.state = WriterSendDone
		} else {
			w.state = WriterSendTransfer
		}

	case WriterWaitTransfer:
		resp, ok, err := w.transport.PollWrite(w.pendingID)
		if !ok {
			return err
		}
		if err != nil || resp.Error != imagering.WireOK {
			w.state = WriterResendTransfer
			return nil
		}
		w.sentOffset += uint64(len(w.pending.data))
		if w.sentOffset >= uint64(w.totalSize) {
			w.state = WriterSendDone
		} else {
			w.state = WriterSendTransfer
		}

	case WriterWaitDone:
		resp, ok, err := w.transport.PollWrite(w.pendingID)
		if !ok {
			return err
		}
		if err != nil || resp.Error != imagering.WireOK {
			w.state = WriterResendDone
			return nil
		}
		// The peer has acknowledged the whole file; retire the image with
		// the end-of-stream sentinel so the source can move on to the
		// next one.
		if _, ferr := w.stream.GetChunk(nil); ferr != nil {
			w.logger.Errorf("%sWriterClient: finalizing stream: %v", logging.NSTransfer, ferr)
		}
		w.reset()
	}
	return nil
}

// Request emits exactly one new request if the current state warrants
// it; it is a no-op in IDLE (with an empty stream) or any WAIT_* state.
func (w *WriterClient) Request() error {
	switch w.state {
	case WriterIdle:
		if w.stream.IsEmpty() {
			return nil
		}
		w.state = WriterSendInit
		return w.sendInit()

	case WriterSendInit, WriterResendInit:
		return w.sendInit()

	case WriterSendTransfer, WriterResendTransfer:
		return w.sendTransfer()

	case WriterSendDone, WriterResendDone:
		return w.sendDone()
	}
	return nil
}

func (w *WriterClient) sendInit() error {
	if w.state == WriterSendInit {
		testutil.MaybeKill(testutil.KPWriterSendInit0)
		meta := make([]byte, 64)
		n, err := w.stream.Initialize(meta)
		if err != nil {
			w.logger.Errorf("%sWriterClient: stream.Initialize: %v", logging.NSTransfer, err)
			return err
		}
		w.name = w.stream.Name()
		w.totalSize = w.stream.Size()
		w.pending = pendingChunk{offset: 0, data: append([]byte(nil), meta[:n]...)}
	}

	id, err := w.transport.SendWrite(w.node, WriteRequest{Path: w.name, Offset: w.pending.offset, Data: w.pending.data})
	if err != nil {
		return err
	}
	w.pendingID = id
	w.state = WriterWaitInit
	return nil
}

func (w *WriterClient) sendTransfer() error {
	if w.state == WriterSendTransfer {
		remaining := uint64(w.totalSize) - w.sentOffset
		n := uint64(imagering.ProtocolChunkCap)
		if n > remaining {
			n = remaining
		}
		buf := make([]byte, n)
		got, err := w.stream.GetChunk(buf)
		if err != nil {
			w.logger.Errorf("%sWriterClient: stream.GetChunk: %v", logging.NSTransfer, err)
			return err
		}
		w.pending = pendingChunk{offset: w.sentOffset, data: append([]byte(nil), buf[:got]...)}
	}

	id, err := w.transport.SendWrite(w.node, WriteRequest{Path: w.name, Offset: w.pending.offset, Data: w.pending.data})
	if err != nil {
		return err
	}
	w.pendingID = id
	w.state = WriterWaitTransfer
	return nil
}

func (w *WriterClient) sendDone() error {
	testutil.MaybeKill(testutil.KPWriterSendDone0)
	w.pending = pendingChunk{offset: uint64(w.totalSize), data: nil}

	id, err := w.transport.SendWrite(w.node, WriteRequest{Path: w.name, Offset: w.pending.offset, Data: nil})
	if err != nil {
		return err
	}
	w.pendingID = id
	w.state = WriterWaitDone
	return nil
}

func (w *WriterClient) reset() {
	w.state = WriterIdle
	w.pending = pendingChunk{}
	w.name = [imagering.NameLength]byte{}
	w.totalSize = 0
	w.sentOffset = 0
}
