// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"net"
)

// Opener abstracts how a Session obtains its underlying byte stream to the
// RFB server. The default, DialTCP, opens a plain TCP connection; other
// implementations may tunnel the same byte stream over SSH or WebSocket
// without any other Session code changing.
type Opener interface {
	Open(ctx context.Context, addr string) (net.Conn, error)
}

// tcpOpener opens a direct TCP connection, the transport RFB normally runs over.
type tcpOpener struct{}

// Open dials addr over TCP, respecting ctx's deadline and cancellation.
func (tcpOpener) Open(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, transportClosedError("tcpOpener.Open", "failed to dial server", err)
	}
	return conn, nil
}

// DialTCP returns the default Opener, a plain TCP dialer.
func DialTCP() Opener {
	return tcpOpener{}
}
