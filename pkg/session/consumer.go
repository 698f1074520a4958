package session

import (
	"strings"
	"sync"
)

// Consumer accumulates stream fragments into the full assistant reply.
// Accumulated text only ever grows; fragments are never retracted, even
// when the stream later fails.
type Consumer struct {
	mu  sync.Mutex
	buf strings.Builder
}

// NewConsumer returns an empty Consumer.
func NewConsumer() *Consumer {
	return &Consumer{}
}

// Append adds one fragment to the accumulated text.
func (c *Consumer) Append(fragment string) {
	c.mu.Lock()
	c.buf.WriteString(fragment)
	c.mu.Unlock()
}

// Accumulated returns everything received so far.
func (c *Consumer) Accumulated() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Len returns the accumulated byte length.
func (c *Consumer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Len()
}
