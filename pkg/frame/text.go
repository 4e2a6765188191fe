package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a message in the console form "<id>: <hex> <hex>...".
func Format(m Message) string {
	if len(m.Data) == 0 {
		return fmt.Sprintf("%d:", m.Channel)
	}
	hex := make([]string, len(m.Data))
	for n, b := range m.Data {
		hex[n] = fmt.Sprintf("%02x", b)
	}
	return fmt.Sprintf("%d: %s", m.Channel, strings.Join(hex, " "))
}

// Parse parses a console line "<id>: <hex> <hex>..." into a message.
// It is the inverse of Format over messages with at least one data byte.
func Parse(line string) (Message, error) {
	var m Message
	line = strings.TrimSpace(line)
	if line == "" {
		return m, fmt.Errorf("empty line")
	}
	idStr, hexStr, found := strings.Cut(line, ":")
	if !found {
		return m, fmt.Errorf("expected \"<channel>: <hex> <hex>...\"")
	}
	ch, err := strconv.Atoi(strings.TrimSpace(idStr))
	if err != nil {
		return m, fmt.Errorf("bad channel %q", strings.TrimSpace(idStr))
	}
	if ch < 0 || ch > MaxChannel {
		return m, fmt.Errorf("channel %d out of range 0-%d", ch, MaxChannel)
	}
	fields := strings.Fields(hexStr)
	if len(fields) == 0 {
		return m, fmt.Errorf("no data bytes")
	}
	if len(fields) > MaxData {
		return m, fmt.Errorf("data %d bytes exceeds %d", len(fields), MaxData)
	}
	data := make([]byte, len(fields))
	for n, tok := range fields {
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return m, fmt.Errorf("bad hex byte %q", tok)
		}
		data[n] = byte(v)
	}
	m.Channel, m.Data = byte(ch), data
	return m, nil
}
