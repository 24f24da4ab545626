// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"
)

func TestWire_Uint16RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	if err := writeUint16(ctx, &buf, 0xBEEF); err != nil {
		t.Fatalf("writeUint16: %v", err)
	}
	got, err := readUint16(ctx, &buf)
	if err != nil {
		t.Fatalf("readUint16: %v", err)
	}
	if got != 0xBEEF {
		t.Errorf("got %#x, want %#x", got, 0xBEEF)
	}
}

func TestWire_Uint32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	if err := writeUint32(ctx, &buf, 0xDEADBEEF); err != nil {
		t.Fatalf("writeUint32: %v", err)
	}
	got, err := readUint32(ctx, &buf)
	if err != nil {
		t.Fatalf("readUint32: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Errorf("got %#x, want %#x", got, 0xDEADBEEF)
	}
}

func TestWire_LengthPrefixedStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	if err := writeLengthPrefixedString(ctx, &buf, "hello world"); err != nil {
		t.Fatalf("writeLengthPrefixedString: %v", err)
	}
	got, err := readLengthPrefixedString(ctx, &buf, 1024)
	if err != nil {
		t.Fatalf("readLengthPrefixedString: %v", err)
	}
	if got != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
}

func TestWire_LengthPrefixedStringExceedsMax(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	if err := writeLengthPrefixedString(ctx, &buf, "too long"); err != nil {
		t.Fatalf("writeLengthPrefixedString: %v", err)
	}
	if _, err := readLengthPrefixedString(ctx, &buf, 3); err == nil {
		t.Fatal("expected error for string exceeding max length")
	} else if !IsVNCError(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", GetErrorKind(err))
	}
}

// TestWire_ReadCancelledByContext verifies a read blocked on a connection
// with no data available unblocks as soon as the context is cancelled,
// rather than waiting for the peer.
func TestWire_ReadCancelledByContext(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := readBytes(ctx, client, 4)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !IsVNCError(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("readBytes did not observe context cancellation")
	}
}

func TestWire_WriteSurfacesClosedTransport(t *testing.T) {
	client, server := net.Pipe()
	server.Close()
	defer client.Close()

	err := writeFull(context.Background(), client, []byte("x"))
	if !IsVNCError(err, ErrTransportClosed) {
		t.Errorf("expected ErrTransportClosed, got %v", err)
	}
}
