// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"sync"
)

// Clipboard tracks the last server cut-text and sends ClientCutText.
type Clipboard struct {
	s *Session

	mu       sync.RWMutex
	received string
}

// Text returns the last clipboard text received from the server.
func (c *Clipboard) Text() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.received
}

// setReceived is called by the message loop when a ServerCutText arrives.
func (c *Clipboard) setReceived(text string) {
	c.mu.Lock()
	c.received = text
	c.mu.Unlock()
}

// Write sends text to the server as ClientCutText.
func (c *Clipboard) Write(ctx context.Context, text string) error {
	return c.s.clientCutText(ctx, text)
}
