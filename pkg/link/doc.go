// Package link implements the host side of the MCU bus protocol.
package link

// The host is the bus master and drives three transaction types:
// SEND pushes a payload to the peer, REQUEST asks the peer to stage its
// queued data, and FETCH clocks the staged response out. REQUEST+FETCH
// form one handshake cycle, sequenced by the asserted-low response-ready
// line: the host must not fetch before it asserts and must not start a
// new transaction before it deasserts.
//
// Flow control is credit based. The peer reports its free receive-buffer
// space in 64-byte units inside every fetch response; the host decrements
// a local estimate on each send and overwrites it with the reported value
// on each cycle. The estimate is advisory, the report is authoritative.
//
// One mutex serializes all transactions on a Link, so the background
// Poller and foreground senders share the bus without tearing a
// handshake. The peer signals queued inbound data on the asserted-low
// data-pending line.
//
// Producer: MCU firmware (bus slave)
// Consumer: this host (bus master)
