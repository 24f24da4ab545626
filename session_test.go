// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"net"
	"testing"
	"time"
)

// fakeOpener hands Connect one end of an already-established net.Pipe,
// standing in for a real TCP dial in tests.
type fakeOpener struct {
	conn net.Conn
}

func (f fakeOpener) Open(ctx context.Context, addr string) (net.Conn, error) {
	return f.conn, nil
}

// serveNoneAuthHandshake plays the server side of a minimal ProtocolVersion
// + None-auth + ClientInit/ServerInit handshake, then drains the client's
// post-handshake SetPixelFormat/SetEncodings override, leaving server ready
// for the test to drive further traffic or close the connection.
func serveNoneAuthHandshake(ctx context.Context, server net.Conn) error {
	if err := writeFull(ctx, server, []byte("RFB 003.008\n")); err != nil {
		return err
	}
	if _, err := readBytes(ctx, server, protocolVersionLength); err != nil {
		return err
	}
	if err := writeUint8(ctx, server, 1); err != nil {
		return err
	}
	if err := writeUint8(ctx, server, 1); err != nil {
		return err
	}
	if _, err := readUint8(ctx, server); err != nil { // chosen security type
		return err
	}
	if err := writeUint32(ctx, server, 0); err != nil { // SecurityResult OK
		return err
	}
	if _, err := readUint8(ctx, server); err != nil { // ClientInit shared flag
		return err
	}
	if err := writeUint16(ctx, server, 4); err != nil { // width
		return err
	}
	if err := writeUint16(ctx, server, 4); err != nil { // height
		return err
	}
	if err := writePixelFormat(ctx, server, canonicalPixelFormat()); err != nil {
		return err
	}
	if err := writeLengthPrefixedString(ctx, server, "Test Desktop"); err != nil {
		return err
	}
	if _, err := readBytes(ctx, server, 20); err != nil { // client SetPixelFormat
		return err
	}
	if _, err := readBytes(ctx, server, 12); err != nil { // client SetEncodings
		return err
	}
	return nil
}

// TestConnect_HandshakeAndReadLoop drives the full public Connect entry
// point against a fake server, then closes the server side and verifies the
// background reader goroutine surfaces the resulting error through Err()
// and closes Done().
func TestConnect_HandshakeAndReadLoop(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	serverErrCh := make(chan error, 1)
	go func() { serverErrCh <- serveNoneAuthHandshake(ctx, server) }()

	rang := make(chan struct{}, 1)
	session, err := Connect(ctx, "ignored:0",
		WithOpener(fakeOpener{conn: client}),
		WithBellHandler(func() { rang <- struct{}{} }),
	)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	if err := <-serverErrCh; err != nil {
		t.Fatalf("server side of handshake: %v", err)
	}
	if session.DesktopName() != "Test Desktop" {
		t.Errorf("DesktopName() = %q, want %q", session.DesktopName(), "Test Desktop")
	}

	// Send one Bell so the running reader goroutine has something to
	// dispatch, confirming it was actually started.
	if err := writeUint8(ctx, server, serverMsgBell); err != nil {
		t.Fatalf("write bell: %v", err)
	}
	select {
	case <-rang:
	case <-time.After(time.Second):
		t.Fatal("background reader did not dispatch the bell")
	}

	server.Close()

	select {
	case <-session.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() did not close after the server hung up")
	}
	if session.Err() == nil {
		t.Error("Err() = nil, want the error that terminated the read loop")
	}
}

// TestConnect_ManualRead confirms WithManualRead suppresses the background
// goroutine: no Bell is dispatched until the test calls Session.Read itself.
func TestConnect_ManualRead(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	serverErrCh := make(chan error, 1)
	go func() { serverErrCh <- serveNoneAuthHandshake(ctx, server) }()

	rang := make(chan struct{}, 1)
	session, err := Connect(ctx, "ignored:0",
		WithOpener(fakeOpener{conn: client}),
		WithManualRead(true),
		WithBellHandler(func() { rang <- struct{}{} }),
	)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	if err := <-serverErrCh; err != nil {
		t.Fatalf("server side of handshake: %v", err)
	}

	// net.Pipe writes block until the peer reads, so the bell is written
	// from its own goroutine and completes only once Read consumes it.
	bellWritten := make(chan error, 1)
	go func() { bellWritten <- writeUint8(ctx, server, serverMsgBell) }()

	select {
	case <-rang:
		t.Fatal("bell was dispatched without a call to Read; background goroutine should be disabled")
	case <-time.After(100 * time.Millisecond):
	}

	if err := session.Read(ctx); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := <-bellWritten; err != nil {
		t.Fatalf("write bell: %v", err)
	}
	select {
	case <-rang:
	case <-time.After(time.Second):
		t.Fatal("Read did not dispatch the pending bell")
	}
}
