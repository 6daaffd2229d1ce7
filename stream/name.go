// Package stream adapts a one-image-at-a-time buffer into a resumable,
// byte-oriented source: metadata first, then payload, then an empty
// chunk as an end-of-stream sentinel that pops the image.
package stream

import "github.com/csat-sub002/imagering"

const hexDigits = "0123456789abcdef"

// FormatName renders the fixed-width 19-byte hex-ASCII stream name: the
// first 16 characters are the timestamp's nibbles (least significant
// first), character 16 is '_', and the last two are the producer's
// nibbles (least significant first). The fixed width lets the RPC path
// field be stamped verbatim.
func FormatName(timestamp uint64, producer uint8) [imagering.NameLength]byte {
	var name [imagering.NameLength]byte
	for i := 0; i < 16; i++ {
		nibble := byte(timestamp>>uint(4*i)) & 0xF
		name[i] = hexDigits[nibble]
	}
	name[16] = '_'
	name[17] = hexDigits[producer&0xF]
	name[18] = hexDigits[(producer>>4)&0xF]
	return name
}
