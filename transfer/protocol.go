// Package transfer implements the chunked file-transfer state machines
// and their server-side responders, which drain or fill a remote file
// over a point-to-point request/response RPC bus.
//
// The RPC bus itself is an external collaborator: this package
// specifies the narrow interface it needs (request/response transfer
// kind, per-transfer ids, node addressing, a 256-byte chunk cap) and
// ships an in-memory reference implementation (membus.go) for tests,
// the same way vfs.FS decouples file-backed code from the OS.
package transfer

import "github.com/csat-sub002/imagering"

// NodeID addresses a peer on the RPC bus.
type NodeID uint16

// TransferID correlates a request with its eventual response, assigned
// by the transport when a request is sent.
type TransferID uint64

// WriteRequest is the uavcan.file.Write request shape: path (<=19
// bytes), a byte offset into the logical stream, and up to
// ProtocolChunkCap bytes of data. An empty Data on the final request
// marks end-of-stream.
type WriteRequest struct {
	Path   [imagering.NameLength]byte
	Offset uint64
	Data   []byte
}

// WriteResponse is the uavcan.file.Write response: an error code only.
type WriteResponse struct {
	Error imagering.WireError
}

// ReadRequest is the uavcan.file.Read request shape: path and offset.
type ReadRequest struct {
	Path   [imagering.NameLength]byte
	Offset uint64
}

// ReadResponse is the uavcan.file.Read response: up to ProtocolChunkCap
// bytes of data plus an error code. An empty Data on a successful
// response marks end-of-file.
type ReadResponse struct {
	Data  []byte
	Error imagering.WireError
}

// WriteTransport is what WriterClient needs from the RPC bus. Both
// methods must not block: SendWrite enqueues a request and returns
// immediately with a correlating TransferID; PollWrite reports whether a
// response for that id has arrived yet.
type WriteTransport interface {
	SendWrite(to NodeID, req WriteRequest) (TransferID, error)
	PollWrite(id TransferID) (resp WriteResponse, ok bool, err error)
}

// ReadTransport is the read-direction mirror of WriteTransport, used by
// ReaderClient.
type ReadTransport interface {
	SendRead(to NodeID, req ReadRequest) (TransferID, error)
	PollRead(id TransferID) (resp ReadResponse, ok bool, err error)
}

// WriteRequestHandle lets a responder answer exactly one pending Write
// request.
type WriteRequestHandle interface {
	Respond(resp WriteResponse) error
}

// ReadRequestHandle lets a responder answer exactly one pending Read
// request.
type ReadRequestHandle interface {
	Respond(resp ReadResponse) error
}

// WriteRequestSource is what ResponderWrite needs from the RPC bus: pull
// the next pending Write request addressed to this node, if any.
type WriteRequestSource interface {
	NextWriteRequest() (req WriteRequest, handle WriteRequestHandle, ok bool)
}

// ReadRequestSource is what ResponderRead needs from the RPC bus: pull
// the next pending Read request addressed to this node, if any.
type ReadRequestSource interface {
	NextReadRequest() (req ReadRequest, handle ReadRequestHandle, ok bool)
}

// OutputStream is a local sink for bytes arriving over Read responses or
// Write requests: ReaderClient writes reassembled remote bytes into one,
// and ResponderWrite writes incoming remote bytes into one.
type OutputStream interface {
	Write(data []byte) error
	Finalize() error
}

// OutputStreamFactory opens an OutputStream for a given path, used by
// ResponderWrite to materialize a local sink per incoming path.
type OutputStreamFactory interface {
	Open(path string) (OutputStream, error)
}

// FileAccessor is a local, chunked random-access data source: used by
// ResponderRead to service Read requests against a local file.
type FileAccessor interface {
	// ReadChunk reads up to len(buf) bytes of path starting at offset,
	// returning the number of bytes read. Returning 0 with a nil error
	// indicates end-of-file.
	ReadChunk(path string, offset uint64, buf []byte) (int, error)
}

// PathString renders a fixed-width name array as a string, trimming
// nothing: every byte of the 19-byte hex-ASCII name is significant.
func PathString(name [imagering.NameLength]byte) string {
	return string(name[:])
}
