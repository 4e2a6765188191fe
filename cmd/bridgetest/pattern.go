package main

import (
	"encoding/binary"
	"fmt"
)

// Traffic payloads carry a 4-byte big-endian sequence number followed by
// a deterministic byte pattern, so both sides can verify integrity
// without keeping the data around. The peer generates its own pattern
// for fetched payloads: byte i is (seq*7 + i) & 0xff; outbound payloads
// use (seq + i) & 0xff.

const seqSize = 4

func makeSendPayload(seq uint32, size int) []byte {
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf, seq)
	for i := seqSize; i < size; i++ {
		buf[i] = byte(seq + uint32(i-seqSize))
	}
	return buf
}

func verifyFetchPayload(seq uint32, data []byte) error {
	if len(data) < seqSize {
		return fmt.Errorf("too short (%d bytes)", len(data))
	}
	if got := binary.BigEndian.Uint32(data); got != seq {
		return fmt.Errorf("seq mismatch: expected %d, got %d", seq, got)
	}
	for i := seqSize; i < len(data); i++ {
		expected := byte(seq*7 + uint32(i-seqSize))
		if data[i] != expected {
			return fmt.Errorf("byte[%d] expected 0x%02x got 0x%02x", i, expected, data[i])
		}
	}
	return nil
}

// makeFetchPayload builds the peer-side pattern, for self-tests.
func makeFetchPayload(seq uint32, size int) []byte {
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf, seq)
	for i := seqSize; i < size; i++ {
		buf[i] = byte(seq*7 + uint32(i-seqSize))
	}
	return buf
}
