// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"io"
)

// PixelFormat describes how pixel color data is encoded and interpreted on
// the wire, per RFC 6143 §7.4.
type PixelFormat struct {
	BPP        uint8
	Depth      uint8
	BigEndian  bool
	TrueColor  bool
	RedMax     uint16
	GreenMax   uint16
	BlueMax    uint16
	RedShift   uint8
	GreenShift uint8
	BlueShift  uint8
}

// canonicalPixelFormat is the format this client always requests via
// SetPixelFormat after ServerInit: 32-bit true color, little-endian, with
// R at bit 0, G at bit 8, B at bit 16.
func canonicalPixelFormat() PixelFormat {
	return PixelFormat{
		BPP:        32,
		Depth:      24,
		BigEndian:  false,
		TrueColor:  true,
		RedMax:     255,
		GreenMax:   255,
		BlueMax:    255,
		RedShift:   0,
		GreenShift: 8,
		BlueShift:  16,
	}
}

// readPixelFormat reads the 16-byte wire representation of a PixelFormat.
func readPixelFormat(ctx context.Context, r io.Reader) (PixelFormat, error) {
	var pf PixelFormat

	bpp, err := readUint8(ctx, r)
	if err != nil {
		return pf, err
	}
	depth, err := readUint8(ctx, r)
	if err != nil {
		return pf, err
	}
	bigEndianFlag, err := readUint8(ctx, r)
	if err != nil {
		return pf, err
	}
	trueColorFlag, err := readUint8(ctx, r)
	if err != nil {
		return pf, err
	}
	redMax, err := readUint16(ctx, r)
	if err != nil {
		return pf, err
	}
	greenMax, err := readUint16(ctx, r)
	if err != nil {
		return pf, err
	}
	blueMax, err := readUint16(ctx, r)
	if err != nil {
		return pf, err
	}
	redShift, err := readUint8(ctx, r)
	if err != nil {
		return pf, err
	}
	greenShift, err := readUint8(ctx, r)
	if err != nil {
		return pf, err
	}
	blueShift, err := readUint8(ctx, r)
	if err != nil {
		return pf, err
	}
	if _, err := readBytes(ctx, r, 3); err != nil { // padding
		return pf, err
	}

	pf = PixelFormat{
		BPP:        bpp,
		Depth:      depth,
		BigEndian:  bigEndianFlag != 0,
		TrueColor:  trueColorFlag != 0,
		RedMax:     redMax,
		GreenMax:   greenMax,
		BlueMax:    blueMax,
		RedShift:   redShift,
		GreenShift: greenShift,
		BlueShift:  blueShift,
	}
	return pf, nil
}

// writePixelFormat writes the 16-byte wire representation of a PixelFormat.
func writePixelFormat(ctx context.Context, w io.Writer, pf PixelFormat) error {
	boolByte := func(b bool) uint8 {
		if b {
			return 1
		}
		return 0
	}

	writers := []func() error{
		func() error { return writeUint8(ctx, w, pf.BPP) },
		func() error { return writeUint8(ctx, w, pf.Depth) },
		func() error { return writeUint8(ctx, w, boolByte(pf.BigEndian)) },
		func() error { return writeUint8(ctx, w, boolByte(pf.TrueColor)) },
		func() error { return writeUint16(ctx, w, pf.RedMax) },
		func() error { return writeUint16(ctx, w, pf.GreenMax) },
		func() error { return writeUint16(ctx, w, pf.BlueMax) },
		func() error { return writeUint8(ctx, w, pf.RedShift) },
		func() error { return writeUint8(ctx, w, pf.GreenShift) },
		func() error { return writeUint8(ctx, w, pf.BlueShift) },
		func() error { return writeFull(ctx, w, make([]byte, 3)) }, // padding
	}
	for _, step := range writers {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
