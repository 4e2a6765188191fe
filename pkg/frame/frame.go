package frame

import (
	"fmt"
)

const (
	// MaxChannel is the highest addressable channel id.
	MaxChannel = 7
	// MaxData is the maximum data bytes in one record.
	MaxData = 255

	headerSize = 2
)

// Message is one logical channel message.
type Message struct {
	Channel byte
	Data    []byte
}

// Validate checks the message against the record limits.
func (m Message) Validate() error {
	if m.Channel > MaxChannel {
		return fmt.Errorf("channel %d out of range 0-%d", m.Channel, MaxChannel)
	}
	if len(m.Data) > MaxData {
		return fmt.Errorf("data %d bytes exceeds %d", len(m.Data), MaxData)
	}
	return nil
}

// Encode returns the encoded record for sending.
func Encode(m Message) ([]byte, error) {
	return Append(make([]byte, 0, headerSize+len(m.Data)), m)
}

// Append encodes the record onto dst, for batching multiple records into
// one payload.
func Append(dst []byte, m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return dst, err
	}
	dst = append(dst, m.Channel, byte(len(m.Data)))
	return append(dst, m.Data...), nil
}

// Decode parses consecutive records from a payload, in order.
// It never fails: a record overrunning the remaining bytes ends the scan
// and the tail is discarded.
func Decode(payload []byte) []Message {
	var msgs []Message
	for i := 0; i+headerSize <= len(payload); {
		ch, l := payload[i], int(payload[i+1])
		i += headerSize
		if i+l > len(payload) {
			break
		}
		data := make([]byte, l)
		copy(data, payload[i:i+l])
		msgs = append(msgs, Message{Channel: ch, Data: data})
		i += l
	}
	return msgs
}
