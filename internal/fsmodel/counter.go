package fsmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Counter is the durable capacity-accounting helper referenced in
// spec.md §9 Open Question (iii) ("RepliactedU64 persists a zero-padded
// 10-byte decimal... preserve bit-exact format for on-disk
// compatibility if existing artifacts matter"). DESIGN.md resolves that
// question in favor of preserving the original's on-disk format: a
// fixed-width, zero-padded decimal string, so any on-disk counter
// artifact produced by the original implementation remains readable.
//
// In this module a Counter only ever lives in memory, tracking total
// bytes stored by one node's Manager across Shutdown/Raise cycles
// (which must not reset it); Marshal/Unmarshal exist so the same type
// could be persisted by a real (non-simulated) backend without a
// format change.
type Counter struct {
	value uint64
}

// Load returns the current count.
func (c *Counter) Load() uint64 {
	return c.value
}

// Store sets the current count.
func (c *Counter) Store(v uint64) {
	c.value = v
}

// counterWidth is the fixed field width of the on-disk decimal format.
const counterWidth = 10

// Marshal renders the counter as a zero-padded 10-byte decimal string.
func (c *Counter) Marshal() []byte {
	return []byte(fmt.Sprintf("%0*d", counterWidth, c.value))
}

// Unmarshal parses a zero-padded decimal string produced by Marshal.
// ParseUint tolerates leading zeros natively; surrounding whitespace is
// trimmed before parsing.
func (c *Counter) Unmarshal(b []byte) error {
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return err
	}
	c.value = v
	return nil
}
