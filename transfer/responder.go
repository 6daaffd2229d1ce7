package transfer

import (
	"github.com/csat-sub002/imagering"
	"github.com/csat-sub002/imagering/internal/logging"
	"github.com/csat-sub002/imagering/internal/testutil"
)

// ResponderRead services Read requests against a local FileAccessor. It
// drains every pending request on each Tick, not just one, and keeps no
// state across responses.
type ResponderRead struct {
	source ReadRequestSource
	files  FileAccessor
	logger logging.Logger
}

// NewResponderRead constructs a ResponderRead bound to source and files.
func NewResponderRead(source ReadRequestSource, files FileAccessor, logger logging.Logger) *ResponderRead {
	return &ResponderRead{source: source, files: files, logger: logging.OrDefault(logger)}
}

// Tick answers every Read request currently pending.
func (r *ResponderRead) Tick() error {
	for {
		req, handle, ok := r.source.NextReadRequest()
		if !ok {
			return nil
		}
		if err := r.handle(req, handle); err != nil {
			return err
		}
	}
}

func (r *ResponderRead) handle(req ReadRequest, handle ReadRequestHandle) error {
	buf := make([]byte, imagering.ProtocolChunkCap)
	n, err := r.files.ReadChunk(PathString(req.Path), req.Offset, buf)
	if err != nil {
		r.logger.Errorf("%sResponderRead: ReadChunk(%s, %d): %v", logging.NSResponder, PathString(req.Path), req.Offset, err)
		return handle.Respond(ReadResponse{Error: imagering.WireIOError})
	}
	return handle.Respond(ReadResponse{Data: buf[:n], Error: imagering.WireOK})
}

// ResponderWrite services Write requests by forwarding incoming bytes to
// a local OutputStream opened per path. A zero-length request at a path
// marks end-of-stream: the stream is finalized and the path's entry is
// dropped.
type ResponderWrite struct {
	source  WriteRequestSource
	factory OutputStreamFactory
	logger  logging.Logger

	open map[string]OutputStream
}

// NewResponderWrite constructs a ResponderWrite bound to source, opening
// new OutputStreams via factory as fresh paths arrive.
func NewResponderWrite(source WriteRequestSource, factory OutputStreamFactory, logger logging.Logger) *ResponderWrite {
	return &ResponderWrite{
		source:  source,
		factory: factory,
		logger:  logging.OrDefault(logger),
		open:    make(map[string]OutputStream),
	}
}

// Tick answers every Write request currently pending.
func (r *ResponderWrite) Tick() error {
	for {
		req, handle, ok := r.source.NextWriteRequest()
		if !ok {
			return nil
		}
		if err := r.handle(req, handle); err != nil {
			return err
		}
	}
}

func (r *ResponderWrite) handle(req WriteRequest, handle WriteRequestHandle) error {
	path := PathString(req.Path)

	if len(req.Data) == 0 {
		out, ok := r.open[path]
		if !ok {
			return handle.Respond(WriteResponse{Error: imagering.WireOK})
		}
		err := out.Finalize()
		delete(r.open, path)
		if err != nil {
			r.logger.Errorf("%sResponderWrite: Finalize(%s): %v", logging.NSResponder, path, err)
			return handle.Respond(WriteResponse{Error: imagering.WireIOError})
		}
		return handle.Respond(WriteResponse{Error: imagering.WireOK})
	}

	out, ok := r.open[path]
	if !ok {
		var err error
		out, err = r.factory.Open(path)
		if err != nil {
			r.logger.Errorf("%sResponderWrite: Open(%s): %v", logging.NSResponder, path, err)
			return handle.Respond(WriteResponse{Error: imagering.WireIOError})
		}
		r.open[path] = out
	}

	testutil.MaybeKill(testutil.KPResponderWrite0)
	if err := out.Write(req.Data); err != nil {
		r.logger.Errorf("%sResponderWrite: Write(%s): %v", logging.NSResponder, path, err)
		return handle.Respond(WriteResponse{Error: imagering.WireIOError})
	}
	return handle.Respond(WriteResponse{Error: imagering.WireOK})
}
