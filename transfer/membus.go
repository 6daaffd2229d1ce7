package transfer

import "sync"

// MemBus is an in-memory point-to-point request/response bus implementing
// both the client side (WriteTransport, ReadTransport) and the server
// side (WriteRequestSource, ReadRequestSource) of the transfer protocol.
// It exists for tests: a real deployment's RPC bus is an external
// collaborator (see protocol.go).
type MemBus struct {
	mu sync.Mutex

	nextID TransferID

	writeQueue    []queuedWrite
	writeResponse map[TransferID]WriteResponse

	readQueue    []queuedRead
	readResponse map[TransferID]ReadResponse
}

type queuedWrite struct {
	id  TransferID
	to  NodeID
	req WriteRequest
}

type queuedRead struct {
	id  TransferID
	to  NodeID
	req ReadRequest
}

// NewMemBus constructs an empty bus.
func NewMemBus() *MemBus {
	return &MemBus{
		writeResponse: make(map[TransferID]WriteResponse),
		readResponse:  make(map[TransferID]ReadResponse),
	}
}

// SendWrite implements WriteTransport.
func (b *MemBus) SendWrite(to NodeID, req WriteRequest) (TransferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.writeQueue = append(b.writeQueue, queuedWrite{id: id, to: to, req: req})
	return id, nil
}

// PollWrite implements WriteTransport.
func (b *MemBus) PollWrite(id TransferID) (WriteResponse, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	resp, ok := b.writeResponse[id]
	if ok {
		delete(b.writeResponse, id)
	}
	return resp, ok, nil
}

// SendRead implements ReadTransport.
func (b *MemBus) SendRead(to NodeID, req ReadRequest) (TransferID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.readQueue = append(b.readQueue, queuedRead{id: id, to: to, req: req})
	return id, nil
}

// PollRead implements ReadTransport.
func (b *MemBus) PollRead(id TransferID) (ReadResponse, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	resp, ok := b.readResponse[id]
	if ok {
		delete(b.readResponse, id)
	}
	return resp, ok, nil
}

// WriteSourceFor returns a WriteRequestSource that serves only requests
// addressed to node.
func (b *MemBus) WriteSourceFor(node NodeID) WriteRequestSource {
	return &memWriteSource{bus: b, node: node}
}

// ReadSourceFor returns a ReadRequestSource that serves only requests
// addressed to node.
func (b *MemBus) ReadSourceFor(node NodeID) ReadRequestSource {
	return &memReadSource{bus: b, node: node}
}

type memWriteSource struct {
	bus  *MemBus
	node NodeID
}

func (s *memWriteSource) NextWriteRequest() (WriteRequest, WriteRequestHandle, bool) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	for i, qw := range s.bus.writeQueue {
		if qw.to != s.node {
			continue
		}
		s.bus.writeQueue = append(s.bus.writeQueue[:i], s.bus.writeQueue[i+1:]...)
		return qw.req, &memWriteHandle{bus: s.bus, id: qw.id}, true
	}
	return WriteRequest{}, nil, false
}

type memWriteHandle struct {
	bus *MemBus
	id  TransferID
}

func (h *memWriteHandle) Respond(resp WriteResponse) error {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	h.bus.writeResponse[h.id] = resp
	return nil
}

type memReadSource struct {
	bus  *MemBus
	node NodeID
}

func (s *memReadSource) NextReadRequest() (ReadRequest, ReadRequestHandle, bool) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	for i, qr := range s.bus.readQueue {
		if qr.to != s.node {
			continue
		}
		s.bus.readQueue = append(s.bus.readQueue[:i], s.bus.readQueue[i+1:]...)
		return qr.req, &memReadHandle{bus: s.bus, id: qr.id}, true
	}
	return ReadRequest{}, nil, false
}

type memReadHandle struct {
	bus *MemBus
	id  TransferID
}

func (h *memReadHandle) Respond(resp ReadResponse) error {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	h.bus.readResponse[h.id] = resp
	return nil
}
