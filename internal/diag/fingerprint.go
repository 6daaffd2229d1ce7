// Package diag provides forensic diagnostics for the ring buffer: a
// fast, non-cryptographic content fingerprint used to label boot
// reconstruction log lines so that two scans of the same medium can be diffed
// quickly. This is never part of the on-medium integrity mechanism —
// CRC-32 (internal/checksum) remains the sole format-level authority.
package diag

import "github.com/zeebo/xxh3"

// Fingerprint returns a short hex digest of data, suitable for embedding
// in a log line or CLI dump row.
func Fingerprint(data []byte) string {
	sum := xxh3.Hash(data)
	const hexDigits = "0123456789abcdef"
	var buf [16]byte
	for i := 0; i < 16; i++ {
		shift := uint(60 - 4*i)
		buf[i] = hexDigits[(sum>>shift)&0xF]
	}
	return string(buf[:])
}

// EntryFingerprint describes a reconstructed entry for diagnostic
// logging: its physical offset, sequence id, and a content fingerprint
// of the bytes that were validated.
type EntryFingerprint struct {
	Offset      uint32
	SequenceID  uint32
	Fingerprint string
}

// NewEntryFingerprint fingerprints the validated bytes of one entry.
func NewEntryFingerprint(offset, sequenceID uint32, validated []byte) EntryFingerprint {
	return EntryFingerprint{
		Offset:      offset,
		SequenceID:  sequenceID,
		Fingerprint: Fingerprint(validated),
	}
}
