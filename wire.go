// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"encoding/binary"
	"io"
)

// readFull reads exactly len(buf) bytes from r, respecting ctx cancellation.
// A short read surfaces as TransportClosed; a context cancellation or deadline
// surfaces as ErrTimeout.
func readFull(ctx context.Context, r io.Reader, buf []byte) error {
	errCh := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(r, buf)
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		return timeoutError("readFull", "read cancelled", ctx.Err())
	case err := <-errCh:
		if err != nil {
			return transportClosedError("readFull", "connection closed while reading", err)
		}
		return nil
	}
}

// writeFull writes all of buf to w, respecting ctx cancellation.
func writeFull(ctx context.Context, w io.Writer, buf []byte) error {
	errCh := make(chan error, 1)
	go func() {
		_, err := w.Write(buf)
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		return timeoutError("writeFull", "write cancelled", ctx.Err())
	case err := <-errCh:
		if err != nil {
			return transportClosedError("writeFull", "connection closed while writing", err)
		}
		return nil
	}
}

// readUint8 reads a single big-endian byte.
func readUint8(ctx context.Context, r io.Reader) (uint8, error) {
	var buf [1]byte
	if err := readFull(ctx, r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// readUint16 reads a big-endian u16.
func readUint16(ctx context.Context, r io.Reader) (uint16, error) {
	var buf [2]byte
	if err := readFull(ctx, r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// readUint32 reads a big-endian u32.
func readUint32(ctx context.Context, r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := readFull(ctx, r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// readInt32 reads a big-endian s32.
func readInt32(ctx context.Context, r io.Reader) (int32, error) {
	v, err := readUint32(ctx, r)
	return int32(v), err
}

// readBytes reads exactly n bytes.
func readBytes(ctx context.Context, r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := readFull(ctx, r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// readLengthPrefixedString reads a u32 length followed by that many Latin-1/UTF-8 bytes.
func readLengthPrefixedString(ctx context.Context, r io.Reader, maxLength uint32) (string, error) {
	length, err := readUint32(ctx, r)
	if err != nil {
		return "", err
	}
	if length > maxLength {
		return "", validationError("readLengthPrefixedString",
			"length-prefixed string exceeds maximum allowed length", nil)
	}
	data, err := readBytes(ctx, r, int(length))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeUint8 writes a single byte.
func writeUint8(ctx context.Context, w io.Writer, v uint8) error {
	return writeFull(ctx, w, []byte{v})
}

// writeUint16 writes a big-endian u16.
func writeUint16(ctx context.Context, w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return writeFull(ctx, w, buf[:])
}

// writeUint32 writes a big-endian u32.
func writeUint32(ctx context.Context, w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return writeFull(ctx, w, buf[:])
}

// writeLengthPrefixedString writes a u32 length followed by the string's bytes.
func writeLengthPrefixedString(ctx context.Context, w io.Writer, s string) error {
	if err := writeUint32(ctx, w, uint32(len(s))); err != nil {
		return err
	}
	return writeFull(ctx, w, []byte(s))
}
