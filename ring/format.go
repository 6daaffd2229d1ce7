package ring

import (
	"github.com/csat-sub002/imagering/internal/checksum"
	"github.com/csat-sub002/imagering/internal/encoding"
)

// StorageMagic is the 4-byte magic stamped at the start of every
// StorageHeader: ASCII "RCRD".
const StorageMagic uint32 = 'R'<<24 | 'C'<<16 | 'R'<<8 | 'D'

// StorageHeaderVersion and MetadataVersion are the only layout versions
// this implementation understands.
const (
	StorageHeaderVersion uint16 = 1
	MetadataVersion      uint16 = 1
)

// HeaderSize and MetadataSize are the packed, little-endian on-medium
// sizes of StorageHeader and ImageMetadata.
const (
	HeaderSize   = 40
	MetadataSize = 33
	CRCSize      = 4
)

// Producer enumerates the onboard sources that can stamp an
// ImageMetadata record.
type Producer uint8

const (
	ProducerCamera1 Producer = iota
	ProducerCamera2
	ProducerCamera3
	ProducerThermal
)

// StorageHeader is the 40-byte framing header that precedes every entry
// on the medium.
type StorageHeader struct {
	Magic      uint32
	Version    uint16
	HeaderSize uint16
	SequenceID uint32
	TotalSize  uint32 // bytes following the header: metadata + payload + trailing CRC
	Flags      uint32
	Reserved   [16]byte
	HeaderCRC  uint32
}

// Encode packs h into its 40-byte on-medium representation, including
// the trailing header_crc computed over everything that precedes it.
func (h *StorageHeader) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	encoding.EncodeFixed32(buf[0:4], h.Magic)
	encoding.EncodeFixed16(buf[4:6], h.Version)
	encoding.EncodeFixed16(buf[6:8], h.HeaderSize)
	encoding.EncodeFixed32(buf[8:12], h.SequenceID)
	encoding.EncodeFixed32(buf[12:16], h.TotalSize)
	encoding.EncodeFixed32(buf[16:20], h.Flags)
	copy(buf[20:36], h.Reserved[:])

	crc := checksum.Value(buf[0:36])
	h.HeaderCRC = crc
	encoding.EncodeFixed32(buf[36:40], crc)
	return buf
}

// DecodeStorageHeader unpacks a 40-byte buffer into a StorageHeader and
// reports whether its header_crc verifies.
func DecodeStorageHeader(buf []byte) (StorageHeader, bool) {
	var h StorageHeader
	if len(buf) < HeaderSize {
		return h, false
	}
	s := encoding.NewSlice(buf[:HeaderSize])
	h.Magic, _ = s.GetFixed32()
	h.Version, _ = s.GetFixed16()
	h.HeaderSize, _ = s.GetFixed16()
	h.SequenceID, _ = s.GetFixed32()
	h.TotalSize, _ = s.GetFixed32()
	h.Flags, _ = s.GetFixed32()
	reserved, _ := s.GetBytes(len(h.Reserved))
	copy(h.Reserved[:], reserved)
	h.HeaderCRC, _ = s.GetFixed32()

	ok := h.Magic == StorageMagic && checksum.Value(buf[0:36]) == h.HeaderCRC
	return h, ok
}

// ImageMetadata is the semantic record that follows a StorageHeader.
type ImageMetadata struct {
	Version      uint16
	MetadataSize uint16
	Timestamp    uint32
	PayloadSize  uint32
	Latitude     float32
	Longitude    float32
	Producer     Producer
	Reserved     [8]byte
	MetaCRC      uint32
}

// Encode packs m into its 33-byte on-medium representation, including
// the trailing meta_crc computed over everything that precedes it.
func (m *ImageMetadata) Encode() [MetadataSize]byte {
	var buf [MetadataSize]byte
	encoding.EncodeFixed16(buf[0:2], m.Version)
	encoding.EncodeFixed16(buf[2:4], m.MetadataSize)
	encoding.EncodeFixed32(buf[4:8], m.Timestamp)
	encoding.EncodeFixed32(buf[8:12], m.PayloadSize)
	encoding.EncodeFloat32(buf[12:16], m.Latitude)
	encoding.EncodeFloat32(buf[16:20], m.Longitude)
	buf[20] = byte(m.Producer)
	copy(buf[21:29], m.Reserved[:])

	crc := checksum.Value(buf[0:29])
	m.MetaCRC = crc
	encoding.EncodeFixed32(buf[29:33], crc)
	return buf
}

// DecodeImageMetadata unpacks a 33-byte buffer into an ImageMetadata and
// reports whether its meta_crc verifies.
func DecodeImageMetadata(buf []byte) (ImageMetadata, bool) {
	var m ImageMetadata
	if len(buf) < MetadataSize {
		return m, false
	}
	s := encoding.NewSlice(buf[:MetadataSize])
	m.Version, _ = s.GetFixed16()
	m.MetadataSize, _ = s.GetFixed16()
	m.Timestamp, _ = s.GetFixed32()
	m.PayloadSize, _ = s.GetFixed32()
	m.Latitude, _ = s.GetFloat32()
	m.Longitude, _ = s.GetFloat32()
	producer, _ := s.GetBytes(1)
	m.Producer = Producer(producer[0])
	reserved, _ := s.GetBytes(len(m.Reserved))
	copy(m.Reserved[:], reserved)
	m.MetaCRC, _ = s.GetFixed32()

	ok := checksum.Value(buf[0:29]) == m.MetaCRC
	return m, ok
}
