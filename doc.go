// Package imagering implements the persistent image ring-buffer subsystem
// of a small satellite's onboard data pipeline, together with the chunked
// file-transfer state machines that drain it over a request/response RPC
// bus.
//
// A ring buffer (package ring) stores framed, CRC-protected image entries
// on an abstract block-addressable medium (package storage) and survives
// arbitrary power loss by reconstructing its logical state from physical
// evidence on boot. Package stream adapts one image at a time into a
// resumable byte source, and package transfer implements the Writer and
// Reader state machines that walk that source over a point-to-point RPC
// surface.
//
// This package holds the wire constants and error taxonomy shared by
// every layer, and the top-level Options used to construct a ring buffer.
package imagering

import "github.com/csat-sub002/imagering/ring"

// On-medium framing constants. See ring/format.go for the exact
// StorageHeader/ImageMetadata layout these values describe.
const (
	// StorageMagic is the 4-byte magic stamped at the start of every
	// StorageHeader: ASCII "RCRD".
	StorageMagic = ring.StorageMagic

	// StorageHeaderVersion is the only StorageHeader layout version this
	// implementation understands.
	StorageHeaderVersion = ring.StorageHeaderVersion

	// MetadataVersion is the only ImageMetadata layout version this
	// implementation understands.
	MetadataVersion = ring.MetadataVersion

	// ProtocolChunkCap is the maximum number of payload bytes carried in
	// one Write request or Read response.
	ProtocolChunkCap = 256

	// NameLength is the fixed width, in bytes, of a stream's logical
	// hex-ASCII name (see stream.FormatName).
	NameLength = 19
)

// Producer enumerates the onboard sources that can stamp an ImageMetadata
// record.
type Producer = ring.Producer

const (
	ProducerCamera1 = ring.ProducerCamera1
	ProducerCamera2 = ring.ProducerCamera2
	ProducerCamera3 = ring.ProducerCamera3
	ProducerThermal = ring.ProducerThermal
)

// WireError is the error code carried on the RPC surface.
type WireError uint16

const (
	// WireOK indicates the request succeeded.
	WireOK WireError = 0
	// WireIOError indicates the responder failed to service the request
	// locally (file accessor or output stream error).
	WireIOError WireError = 1
)
