// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"io"
	"sync"
)

const (
	encodingRaw  int32 = 0
	encodingZlib int32 = 6
)

// Rectangle describes one framebuffer update region and its wire encoding.
type Rectangle struct {
	X, Y, Width, Height uint16
	Encoding            int32
}

// zlibStream wraps a single inflate context whose history persists across
// the entire session, per RFC 6143's note that the server may reference
// data from earlier zlib rectangles. It is fed by appending compressed
// bytes to an accumulating buffer and lazily creating the zlib.Reader on
// first use, matching the persistent-reader pattern used to decode
// back-to-back zlib rectangles sharing one inflate window.
type zlibStream struct {
	compressed bytes.Buffer
	inflater   io.ReadCloser
}

// inflate decompresses exactly len(out) bytes of data previously appended
// from the server into out, using the session's persistent inflate state.
func (z *zlibStream) inflate(data []byte, out []byte) error {
	z.compressed.Write(data)
	if z.inflater == nil {
		r, err := zlib.NewReader(&z.compressed)
		if err != nil {
			return protocolError("zlibStream.inflate", "failed to initialize zlib stream", err)
		}
		z.inflater = r
	}
	if _, err := io.ReadFull(z.inflater, out); err != nil {
		return protocolError("zlibStream.inflate", "failed to inflate zlib rectangle", err)
	}
	return nil
}

// Framebuffer is the client-side mirror of the server's screen contents:
// width × height × 4 bytes of RGBA, plus a parallel boolean "written" mask
// used by screen detection (§4.8).
type Framebuffer struct {
	mu      sync.RWMutex
	width   uint16
	height  uint16
	pixels  []byte
	written []bool
	zlib    zlibStream
}

// newFramebuffer allocates a Framebuffer of the given dimensions, all
// pixels initially zero and unwritten.
func newFramebuffer(width, height uint16) *Framebuffer {
	return &Framebuffer{
		width:   width,
		height:  height,
		pixels:  make([]byte, int(width)*int(height)*4),
		written: make([]bool, int(width)*int(height)),
	}
}

// Dimensions returns the framebuffer's width and height.
func (fb *Framebuffer) Dimensions() (width, height uint16) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return fb.width, fb.height
}

// AsRGBA returns a copy of the framebuffer's RGBA bytes, in row-major order.
func (fb *Framebuffer) AsRGBA() []byte {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	out := make([]byte, len(fb.pixels))
	copy(out, fb.pixels)
	return out
}

// Rect returns a clamped copy of the RGBA bytes within (x, y, w, h),
// supplementing AsRGBA for callers that only need a sub-region.
func (fb *Framebuffer) Rect(x, y, w, h uint16) ([]byte, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	if x >= fb.width || y >= fb.height {
		return nil, validationError("Framebuffer.Rect", "rectangle origin outside framebuffer", nil)
	}
	if x+w > fb.width {
		w = fb.width - x
	}
	if y+h > fb.height {
		h = fb.height - y
	}

	out := make([]byte, int(w)*int(h)*4)
	for row := uint16(0); row < h; row++ {
		srcOff := (int(y+row)*int(fb.width) + int(x)) * 4
		dstOff := int(row) * int(w) * 4
		copy(out[dstOff:dstOff+int(w)*4], fb.pixels[srcOff:srcOff+int(w)*4])
	}
	return out, nil
}

// writtenSnapshot returns a copy of the written mask for screen detection.
func (fb *Framebuffer) writtenSnapshot() ([]bool, uint16, uint16) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	out := make([]bool, len(fb.written))
	copy(out, fb.written)
	return out, fb.width, fb.height
}

// applyRectangle decodes one FramebufferUpdate rectangle from r according
// to its declared encoding and blits the result into the framebuffer,
// marking the covered pixels written. The rectangle is applied atomically
// from the caller's perspective: no partial state is visible until decode
// completes.
func (fb *Framebuffer) applyRectangle(ctx context.Context, pf PixelFormat, rect Rectangle, r io.Reader) error {
	bytesPerPixel := int(pf.BPP / 8)
	pixelCount := int(rect.Width) * int(rect.Height)

	var raw []byte
	switch rect.Encoding {
	case encodingRaw:
		data, err := readBytes(ctx, r, pixelCount*bytesPerPixel)
		if err != nil {
			return err
		}
		raw = data

	case encodingZlib:
		length, err := readUint32(ctx, r)
		if err != nil {
			return err
		}
		compressed, err := readBytes(ctx, r, int(length))
		if err != nil {
			return err
		}
		raw = make([]byte, pixelCount*bytesPerPixel)
		if err := fb.zlib.inflate(compressed, raw); err != nil {
			return err
		}

	default:
		return protocolError("Framebuffer.applyRectangle", "unknown rectangle encoding", nil)
	}

	return fb.blit(pf, rect, raw, bytesPerPixel)
}

// blit decodes bytesPerPixel-sized pixels from raw into RGBA and writes
// them into the framebuffer at the rectangle's position, applying the
// given pixel format's shifts and maxima rather than copying bytes
// straight through.
func (fb *Framebuffer) blit(pf PixelFormat, rect Rectangle, raw []byte, bytesPerPixel int) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	byteOrder := binary.ByteOrder(binary.LittleEndian)
	if pf.BigEndian {
		byteOrder = binary.BigEndian
	}

	readRawPixel := func(b []byte) uint32 {
		switch bytesPerPixel {
		case 1:
			return uint32(b[0])
		case 2:
			return uint32(byteOrder.Uint16(b))
		default:
			return byteOrder.Uint32(b)
		}
	}

	extract := func(rawPixel uint32, shift uint8, max uint16) uint8 {
		if max == 0 {
			return 0
		}
		comp := (rawPixel >> shift) & uint32(max)
		return uint8(comp * 255 / uint32(max))
	}

	for row := uint16(0); row < rect.Height; row++ {
		for col := uint16(0); col < rect.Width; col++ {
			srcOff := (int(row)*int(rect.Width) + int(col)) * bytesPerPixel
			rawPixel := readRawPixel(raw[srcOff : srcOff+bytesPerPixel])

			dstX := int(rect.X) + int(col)
			dstY := int(rect.Y) + int(row)
			if dstX >= int(fb.width) || dstY >= int(fb.height) {
				continue
			}
			idx := dstY*int(fb.width) + dstX
			dstOff := idx * 4

			fb.pixels[dstOff+0] = extract(rawPixel, pf.RedShift, pf.RedMax)
			fb.pixels[dstOff+1] = extract(rawPixel, pf.GreenShift, pf.GreenMax)
			fb.pixels[dstOff+2] = extract(rawPixel, pf.BlueShift, pf.BlueMax)
			fb.pixels[dstOff+3] = 0xff
			fb.written[idx] = true
		}
	}
	return nil
}
