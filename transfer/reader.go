package transfer

import (
	"errors"

	"github.com/csat-sub002/imagering"
	"github.com/csat-sub002/imagering/internal/logging"
)

// ErrReaderBusy indicates Start was called while a transfer was already
// in progress.
var ErrReaderBusy = errors.New("transfer: reader already has a transfer in progress")

// ReadCursor is the local read position for a pull transfer: the remote
// path, the next byte offset to request, and the chunk size given to
// Start. Read requests carry only path and offset, so ChunkSize is not
// sent; the responder decides each chunk's length.
type ReadCursor struct {
	Path      [imagering.NameLength]byte
	Offset    uint64
	ChunkSize uint32
}

// ReaderState names a state in ReaderClient's tagged-variant state
// machine.
type ReaderState int

const (
	ReaderIdle ReaderState = iota
	ReaderSendRequest
	ReaderWaitResponse
	ReaderResendRequest
)

func (s ReaderState) String() string {
	switch s {
	case ReaderIdle:
		return "IDLE"
	case ReaderSendRequest:
		return "SEND_REQUEST"
	case ReaderWaitResponse:
		return "WAIT_RESPONSE"
	case ReaderResendRequest:
		return "RESEND_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// ReaderClient pulls a remote file via the Read RPC into a local
// OutputStream, mirroring WriterClient for the pull direction.
type ReaderClient struct {
	transport ReadTransport
	node      NodeID
	out       OutputStream
	logger    logging.Logger

	state     ReaderState
	cursor    ReadCursor
	pendingID TransferID
	active    bool
}

// NewReaderClient constructs an idle ReaderClient. Call Start to begin
// pulling a file.
func NewReaderClient(transport ReadTransport, node NodeID, logger logging.Logger) *ReaderClient {
	return &ReaderClient{
		transport: transport,
		node:      node,
		logger:    logging.OrDefault(logger),
		state:     ReaderIdle,
	}
}

// State returns the machine's current state.
func (r *ReaderClient) State() ReaderState { return r.state }

// IsIdle reports whether the client is ready to start a new transfer.
func (r *ReaderClient) IsIdle() bool { return !r.active }

// Start begins pulling path from node into out, starting at offset 0.
// chunkSize is clamped to imagering.ProtocolChunkCap and stored in the
// cursor; it is not sent with Read requests, whose chunk length the
// responder decides.
func (r *ReaderClient) Start(path [imagering.NameLength]byte, out OutputStream, chunkSize uint32) error {
	if r.active {
		return ErrReaderBusy
	}
	if chunkSize == 0 || chunkSize > imagering.ProtocolChunkCap {
		chunkSize = imagering.ProtocolChunkCap
	}
	r.cursor = ReadCursor{Path: path, Offset: 0, ChunkSize: chunkSize}
	r.out = out
	r.active = true
	r.state = ReaderSendRequest
	return nil
}

// Tick drains one pending response (if any) and then emits one new
// request (if the state warrants). It never blocks; the periodic
// scheduler provides the pacing.
func (r *ReaderClient) Tick() error {
	if err := r.Respond(); err != nil {
		return err
	}
	return r.Request()
}

// Respond drains one pending response, forwarding bytes to the output
// stream, advancing the cursor, and transitioning state. A zero-length
// data response marks EOF and finalizes the output.
func (r *ReaderClient) Respond() error {
	if r.state != ReaderWaitResponse {
		return nil
	}
	resp, ok, err := r.transport.PollRead(r.pendingID)
	if !ok {
		return err
	}
	if err != nil || resp.Error != imagering.WireOK {
		r.state = ReaderResendRequest
		return nil
	}

	if len(resp.Data) == 0 {
		finErr := r.out.Finalize()
		r.active = false
		r.state = ReaderIdle
		return finErr
	}

	if err := r.out.Write(resp.Data); err != nil {
		r.logger.Errorf("%sReaderClient: OutputStream.Write: %v", logging.NSTransfer, err)
		return err
	}
	r.cursor.Offset += uint64(len(resp.Data))
	r.state = ReaderSendRequest
	return nil
}

// Request emits exactly one new request if the current state warrants
// it.
func (r *ReaderClient) Request() error {
	switch r.state {
	case ReaderSendRequest, ReaderResendRequest:
		id, err := r.transport.SendRead(r.node, ReadRequest{Path: r.cursor.Path, Offset: r.cursor.Offset})
		if err != nil {
			return err
		}
		r.pendingID = id
		r.state = ReaderWaitResponse
	}
	return nil
}
