// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package vnc implements an RFB (Remote Framebuffer) protocol client, the
// wire protocol VNC servers speak, as specified in RFC 6143.
//
// # Basic Usage
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	session, err := vnc.Connect(ctx, "localhost:5900", vnc.WithAuth("", "secret"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer session.Close()
//
// # Input Events
//
//	// Type text, bracketing characters that need Shift automatically.
//	session.Keyboard().Write(ctx, "Hello!")
//
//	// Hold a chord of keys, releasing in reverse order via defer.
//	release, err := session.Keyboard().Hold(ctx, "Ctrl", "c")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer release()
//
//	// Move the pointer and click.
//	session.Mouse().Move(ctx, 100, 100)
//	session.Mouse().Click(ctx, vnc.ButtonLeft)
//
// # Reading the Framebuffer
//
//	session.RequestUpdate(ctx, false, 0, 0, w, h)
//	rgba := session.Framebuffer().AsRGBA()
//
// # Transports
//
// Connect dials plain TCP by default. Supply WithOpener to tunnel the same
// byte stream over SSH (SSHOpener) or a websockify-style WebSocket bridge
// (WebSocketOpener) instead.
//
// # Driving the Message Loop Manually
//
// Connect spawns a background goroutine that reads server messages until
// the connection closes. Pass WithManualRead(true) to suppress it and call
// session.Read(ctx) in a loop instead, e.g. to advance the session from an
// existing event loop:
//
//	session, err := vnc.Connect(ctx, "localhost:5900", vnc.WithManualRead(true))
//	...
//	for {
//		if err := session.Read(ctx); err != nil {
//			break
//		}
//	}
//
// # Error Handling
//
//	if vnc.IsVNCError(err, vnc.ErrAuthFailed) {
//		log.Printf("authentication failed: %v", err)
//	}
package vnc
