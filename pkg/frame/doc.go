// Package frame multiplexes logical channel messages over one payload.
package frame

// A payload carries zero or more records, each laid out as
// [channel:1][length:1][data:length], concatenated back to back.
// Channel ids 0-7 address independent logical channels on the peer;
// length is 0-255. The codec is stateless and shared by all callers
// without synchronization.
//
// Decoding is best-effort: a record whose declared length would overrun
// the remaining payload bytes is dropped together with everything after
// it. This keeps a corrupted or truncated transfer from ever producing
// a partial record.
//
// Producer/consumer: MCU firmware on one side, this host on the other.
