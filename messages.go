// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "context"

// ButtonMask bits identify pointer buttons and scroll directions in
// PointerEvent messages.
type ButtonMask uint8

const (
	ButtonLeft       ButtonMask = 1
	ButtonMiddle     ButtonMask = 2
	ButtonRight      ButtonMask = 4
	ButtonScrollUp   ButtonMask = 8
	ButtonScrollDown ButtonMask = 16
)

// String renders mask as its held button names joined by '|', or "none".
func (m ButtonMask) String() string {
	if m == 0 {
		return "none"
	}
	bits := []struct {
		bit  ButtonMask
		name string
	}{
		{ButtonLeft, "Left"},
		{ButtonMiddle, "Middle"},
		{ButtonRight, "Right"},
		{ButtonScrollUp, "ScrollUp"},
		{ButtonScrollDown, "ScrollDown"},
	}
	out := ""
	for _, b := range bits {
		if m&b.bit == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += b.name
	}
	return out
}

const (
	clientMsgSetPixelFormat           uint8 = 0
	clientMsgSetEncodings             uint8 = 2
	clientMsgFramebufferUpdateRequest uint8 = 3
	clientMsgKeyEvent                 uint8 = 4
	clientMsgPointerEvent             uint8 = 5
	clientMsgClientCutText            uint8 = 6
)

const (
	serverMsgFramebufferUpdate  uint8 = 0
	serverMsgSetColourMapEntry  uint8 = 1
	serverMsgBell               uint8 = 2
	serverMsgServerCutText      uint8 = 3
)

const maxRectanglesPerUpdate = 10000
const maxClipboardLength = 1 << 20

// readServerMessage reads and dispatches exactly one server-to-client
// message, applying its effect to the session's framebuffer/clipboard
// state or invoking the bell handler. One read is in progress at a time,
// owned exclusively by the session's reader goroutine.
func (s *Session) readServerMessage(ctx context.Context) error {
	msgType, err := readUint8(ctx, s.conn)
	if err != nil {
		return err
	}

	switch msgType {
	case serverMsgFramebufferUpdate:
		return s.readFramebufferUpdate(ctx)
	case serverMsgSetColourMapEntry:
		return s.readAndDiscardColourMapEntries(ctx)
	case serverMsgBell:
		if s.onBell != nil {
			s.onBell()
		}
		return nil
	case serverMsgServerCutText:
		return s.readServerCutText(ctx)
	default:
		return protocolError("readServerMessage", "unknown server message type", nil)
	}
}

// readFramebufferUpdate reads a FramebufferUpdate (server message 0): u8
// padding, u16 rectangle count, then that many rectangles.
func (s *Session) readFramebufferUpdate(ctx context.Context) error {
	if _, err := readBytes(ctx, s.conn, 1); err != nil { // padding
		return err
	}
	rectCount, err := readUint16(ctx, s.conn)
	if err != nil {
		return err
	}
	if int(rectCount) > maxRectanglesPerUpdate {
		return protocolError("readFramebufferUpdate", "rectangle count exceeds sanity limit", nil)
	}

	pf := s.getPixelFormat()

	for i := uint16(0); i < rectCount; i++ {
		x, err := readUint16(ctx, s.conn)
		if err != nil {
			return err
		}
		y, err := readUint16(ctx, s.conn)
		if err != nil {
			return err
		}
		w, err := readUint16(ctx, s.conn)
		if err != nil {
			return err
		}
		h, err := readUint16(ctx, s.conn)
		if err != nil {
			return err
		}
		enc, err := readInt32(ctx, s.conn)
		if err != nil {
			return err
		}

		rect := Rectangle{X: x, Y: y, Width: w, Height: h, Encoding: enc}
		if err := s.framebuffer.applyRectangle(ctx, pf, rect, s.conn); err != nil {
			return err
		}
	}
	return nil
}

// readAndDiscardColourMapEntries reads and ignores SetColourMapEntries
// (server message 1); the client always forces true color, so color map
// updates carry no information it needs.
func (s *Session) readAndDiscardColourMapEntries(ctx context.Context) error {
	if _, err := readBytes(ctx, s.conn, 1); err != nil { // padding
		return err
	}
	if _, err := readUint16(ctx, s.conn); err != nil { // first color
		return err
	}
	numColors, err := readUint16(ctx, s.conn)
	if err != nil {
		return err
	}
	_, err = readBytes(ctx, s.conn, int(numColors)*6) // 3×u16 per entry
	return err
}

// readServerCutText reads ServerCutText (server message 3): u8×3 padding,
// u32 length, then that many Latin-1 bytes, per RFC 6143 §7.6.4.
func (s *Session) readServerCutText(ctx context.Context) error {
	if _, err := readBytes(ctx, s.conn, 3); err != nil { // padding
		return err
	}
	length, err := readUint32(ctx, s.conn)
	if err != nil {
		return err
	}
	if length > maxClipboardLength {
		return protocolError("readServerCutText", "clipboard text exceeds sanity limit", nil)
	}
	text, err := readBytes(ctx, s.conn, int(length))
	if err != nil {
		return err
	}
	s.clipboard.setReceived(string(text))
	return nil
}

// setPixelFormat sends SetPixelFormat (client message 0).
func (s *Session) setPixelFormat(ctx context.Context, pf PixelFormat) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := writeUint8(ctx, s.conn, clientMsgSetPixelFormat); err != nil {
		return err
	}
	if err := writeFull(ctx, s.conn, make([]byte, 3)); err != nil { // padding
		return err
	}
	return writePixelFormat(ctx, s.conn, pf)
}

// setEncodings sends SetEncodings (client message 2), listing the
// encodings this client is willing to decode — Raw and zlib, per this
// client's Non-goal of supporting no other RFB encodings.
func (s *Session) setEncodings(ctx context.Context, encodings []int32) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := writeUint8(ctx, s.conn, clientMsgSetEncodings); err != nil {
		return err
	}
	if err := writeFull(ctx, s.conn, make([]byte, 1)); err != nil { // padding
		return err
	}
	if err := writeUint16(ctx, s.conn, uint16(len(encodings))); err != nil {
		return err
	}
	for _, enc := range encodings {
		if err := writeUint32(ctx, s.conn, uint32(enc)); err != nil {
			return err
		}
	}
	return nil
}

// framebufferUpdateRequest sends FramebufferUpdateRequest (client message 3).
func (s *Session) framebufferUpdateRequest(ctx context.Context, incremental bool, x, y, w, h uint16) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	incrementalFlag := uint8(0)
	if incremental {
		incrementalFlag = 1
	}

	if err := writeUint8(ctx, s.conn, clientMsgFramebufferUpdateRequest); err != nil {
		return err
	}
	if err := writeUint8(ctx, s.conn, incrementalFlag); err != nil {
		return err
	}
	if err := writeUint16(ctx, s.conn, x); err != nil {
		return err
	}
	if err := writeUint16(ctx, s.conn, y); err != nil {
		return err
	}
	if err := writeUint16(ctx, s.conn, w); err != nil {
		return err
	}
	return writeUint16(ctx, s.conn, h)
}

// keyEvent sends KeyEvent (client message 4).
func (s *Session) keyEvent(ctx context.Context, keysym uint32, down bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	downFlag := uint8(0)
	if down {
		downFlag = 1
	}

	if err := writeUint8(ctx, s.conn, clientMsgKeyEvent); err != nil {
		return err
	}
	if err := writeUint8(ctx, s.conn, downFlag); err != nil {
		return err
	}
	if err := writeFull(ctx, s.conn, make([]byte, 2)); err != nil { // padding
		return err
	}
	return writeUint32(ctx, s.conn, keysym)
}

// pointerEvent sends PointerEvent (client message 5).
func (s *Session) pointerEvent(ctx context.Context, mask ButtonMask, x, y uint16) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.logger.Debug("pointer event", Field{Key: "mask", Value: mask}, Field{Key: "x", Value: x}, Field{Key: "y", Value: y})

	if err := writeUint8(ctx, s.conn, clientMsgPointerEvent); err != nil {
		return err
	}
	if err := writeUint8(ctx, s.conn, uint8(mask)); err != nil {
		return err
	}
	if err := writeUint16(ctx, s.conn, x); err != nil {
		return err
	}
	return writeUint16(ctx, s.conn, y)
}

// clientCutText sends ClientCutText (client message 6).
func (s *Session) clientCutText(ctx context.Context, text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := writeUint8(ctx, s.conn, clientMsgClientCutText); err != nil {
		return err
	}
	if err := writeFull(ctx, s.conn, make([]byte, 3)); err != nil { // padding
		return err
	}
	if err := writeUint32(ctx, s.conn, uint32(len(text))); err != nil {
		return err
	}
	return writeFull(ctx, s.conn, []byte(text))
}
