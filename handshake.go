// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"fmt"
)

const protocolVersionLength = 12

// handshake drives the session through ProtocolVersion negotiation,
// SecurityNegotiation, ClientInit/ServerInit, and the initial
// SetPixelFormat/SetEncodings override, in that fixed order. It runs once,
// before the reader goroutine starts, so it owns conn exclusively.
func (s *Session) handshake(ctx context.Context, cfg *config) error {
	if err := s.negotiateProtocolVersion(ctx); err != nil {
		return err
	}

	auth, securityType, err := s.negotiateSecurity(ctx, cfg.username, cfg.password)
	if err != nil {
		return err
	}

	s.logger.Info("selected security type", Field{Key: "type", Value: securityType}, Field{Key: "method", Value: auth.String()})

	if err := auth.handshake(ctx, s.conn); err != nil {
		return err
	}

	if securityType != 30 {
		if err := s.readSecurityResult(ctx); err != nil {
			return err
		}
	}

	if err := s.clientInit(ctx, cfg.exclusive); err != nil {
		return err
	}

	return s.serverInit(ctx)
}

// negotiateProtocolVersion reads the server's ProtocolVersion line and
// responds with "RFB 003.008\n", the only version this client speaks.
func (s *Session) negotiateProtocolVersion(ctx context.Context) error {
	version, err := readBytes(ctx, s.conn, protocolVersionLength)
	if err != nil {
		return err
	}

	var major, minor uint
	if _, err := fmt.Sscanf(string(version), "RFB %d.%d\n", &major, &minor); err != nil {
		return protocolError("negotiateProtocolVersion", "malformed ProtocolVersion line", err)
	}
	if major < 3 || (major == 3 && minor < 8) {
		return protocolError("negotiateProtocolVersion",
			fmt.Sprintf("server protocol version RFB %03d.%03d is older than the minimum supported 003.008", major, minor), nil)
	}

	return writeFull(ctx, s.conn, []byte("RFB 003.008\n"))
}

// negotiateSecurity reads the server's offered security types and selects
// one via the package-level negotiateSecurity priority rule, then writes
// the client's choice back.
func (s *Session) negotiateSecurity(ctx context.Context, username, password string) (clientAuth, uint8, error) {
	count, err := readUint8(ctx, s.conn)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		reason, _ := readLengthPrefixedString(ctx, s.conn, maxClipboardLength)
		return nil, 0, handshakeRejectedError("negotiateSecurity", "server offered no security types: "+reason, nil)
	}

	types, err := readBytes(ctx, s.conn, int(count))
	if err != nil {
		return nil, 0, err
	}
	s.logger.Debug("security types offered", Field{Key: "types", Value: types})

	auth, securityType, err := negotiateSecurity(types, username, password)
	if err != nil {
		return nil, 0, err
	}

	if err := writeUint8(ctx, s.conn, securityType); err != nil {
		return nil, 0, err
	}

	return auth, securityType, nil
}

// readSecurityResult reads the SecurityResult word (§7.1.3). It is skipped
// for Apple Remote Desktop auth, which has no such exchange; failure there
// manifests only as the server closing the transport.
func (s *Session) readSecurityResult(ctx context.Context) error {
	result, err := readUint32(ctx, s.conn)
	if err != nil {
		return err
	}
	if result != 0 {
		reason, _ := readLengthPrefixedString(ctx, s.conn, maxClipboardLength)
		return authFailedError("readSecurityResult", "server rejected authentication: "+reason, nil)
	}
	return nil
}

// clientInit sends ClientInit's shared flag (§7.3.1).
func (s *Session) clientInit(ctx context.Context, exclusive bool) error {
	shared := uint8(1)
	if exclusive {
		shared = 0
	}
	return writeUint8(ctx, s.conn, shared)
}

// serverInit reads framebuffer dimensions, the server's native PixelFormat,
// and the desktop name (§7.3.2), then overrides the pixel format with the
// canonical 32-bit true-color layout and restricts encodings to Raw and zlib.
func (s *Session) serverInit(ctx context.Context) error {
	width, err := readUint16(ctx, s.conn)
	if err != nil {
		return err
	}
	height, err := readUint16(ctx, s.conn)
	if err != nil {
		return err
	}

	pf, err := readPixelFormat(ctx, s.conn)
	if err != nil {
		return err
	}

	name, err := readLengthPrefixedString(ctx, s.conn, 1<<20)
	if err != nil {
		return err
	}

	s.framebuffer = newFramebuffer(width, height)
	s.setPixelFormatState(pf)
	s.desktopName = name

	canonical := canonicalPixelFormat()
	if err := s.setPixelFormat(ctx, canonical); err != nil {
		return err
	}
	s.setPixelFormatState(canonical)

	return s.setEncodings(ctx, []int32{encodingRaw, encodingZlib})
}
