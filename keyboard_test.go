// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"testing"
	"time"
)

func TestKeyboard_HoldOne(t *testing.T) {
	s, server := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	kb := &Keyboard{s: s}

	releaseCh := make(chan func() error, 1)
	errCh := make(chan error, 1)
	go func() {
		release, err := kb.Hold(ctx, "x")
		if err != nil {
			errCh <- err
			return
		}
		releaseCh <- release
	}()

	down, err := readBytes(ctx, server, 8)
	if err != nil {
		t.Fatalf("read down: %v", err)
	}
	wantDown := []byte{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0, 'x'}
	if string(down) != string(wantDown) {
		t.Fatalf("down = %x, want %x", down, wantDown)
	}

	var release func() error
	select {
	case release = <-releaseCh:
	case err := <-errCh:
		t.Fatalf("Hold: %v", err)
	case <-time.After(time.Second):
		t.Fatal("Hold did not return")
	}

	relDone := make(chan error, 1)
	go func() { relDone <- release() }()

	up, err := readBytes(ctx, server, 8)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	wantUp := []byte{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0, 'x'}
	if string(up) != string(wantUp) {
		t.Fatalf("up = %x, want %x", up, wantUp)
	}
	if err := <-relDone; err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestKeyboard_HoldMany(t *testing.T) {
	s, server := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	kb := &Keyboard{s: s}

	releaseCh := make(chan func() error, 1)
	errCh := make(chan error, 1)
	go func() {
		release, err := kb.Hold(ctx, "Ctrl", "Alt", "x")
		if err != nil {
			errCh <- err
			return
		}
		releaseCh <- release
	}()

	wantDowns := [][]byte{
		{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0xff, 0xe3},
		{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0xff, 0xe9},
		{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0, 'x'},
	}
	for i, want := range wantDowns {
		got, err := readBytes(ctx, server, 8)
		if err != nil {
			t.Fatalf("read down %d: %v", i, err)
		}
		if string(got) != string(want) {
			t.Fatalf("down %d = %x, want %x", i, got, want)
		}
	}

	var release func() error
	select {
	case release = <-releaseCh:
	case err := <-errCh:
		t.Fatalf("Hold: %v", err)
	case <-time.After(time.Second):
		t.Fatal("Hold did not return")
	}

	relDone := make(chan error, 1)
	go func() { relDone <- release() }()

	wantUps := [][]byte{
		{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0, 'x'},
		{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0xff, 0xe9},
		{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0xff, 0xe3},
	}
	for i, want := range wantUps {
		got, err := readBytes(ctx, server, 8)
		if err != nil {
			t.Fatalf("read up %d: %v", i, err)
		}
		if string(got) != string(want) {
			t.Fatalf("up %d = %x, want %x (release must be reverse order)", i, got, want)
		}
	}
	if err := <-relDone; err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestKeyboard_HoldInvalid(t *testing.T) {
	s, _ := newTestSession(t)
	kb := &Keyboard{s: s}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := kb.Hold(ctx, "NotAKey"); !IsVNCError(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestKeyboard_Press(t *testing.T) {
	s, server := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	kb := &Keyboard{s: s}
	done := make(chan error, 1)
	go func() { done <- kb.Press(ctx, "Return") }()

	down, err := readBytes(ctx, server, 8)
	if err != nil {
		t.Fatalf("read down: %v", err)
	}
	if want := []byte{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0xff, 0x0d}; string(down) != string(want) {
		t.Fatalf("down = %x, want %x", down, want)
	}
	up, err := readBytes(ctx, server, 8)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	if want := []byte{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0xff, 0x0d}; string(up) != string(want) {
		t.Fatalf("up = %x, want %x", up, want)
	}
	if err := <-done; err != nil {
		t.Fatalf("Press: %v", err)
	}
}

func TestKeyboard_Write(t *testing.T) {
	s, server := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	kb := &Keyboard{s: s}
	done := make(chan error, 1)
	go func() { done <- kb.Write(ctx, "Hi!") }()

	want := [][]byte{
		{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0xff, 0xe1}, // Shift down
		{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0, 'H'},     // H down
		{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0, 'H'},     // H up
		{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0xff, 0xe1}, // Shift up
		{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0, 'i'},     // i down
		{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0, 'i'},     // i up
		{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0xff, 0xe1}, // Shift down
		{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0, '1'},     // '!' -> base '1' down
		{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0, '1'},     // '1' up
		{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0xff, 0xe1}, // Shift up
	}
	for i, w := range want {
		got, err := readBytes(ctx, server, 8)
		if err != nil {
			t.Fatalf("read event %d: %v", i, err)
		}
		if string(got) != string(w) {
			t.Fatalf("event %d = %x, want %x", i, got, w)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestKeyboard_WriteShiftAlreadyHeld(t *testing.T) {
	s, server := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s.state.pushKey(keysymShiftL)

	kb := &Keyboard{s: s}
	done := make(chan error, 1)
	go func() { done <- kb.Write(ctx, "A") }()

	down, err := readBytes(ctx, server, 8)
	if err != nil {
		t.Fatalf("read down: %v", err)
	}
	if want := []byte{clientMsgKeyEvent, 1, 0, 0, 0, 0, 0, 'A'}; string(down) != string(want) {
		t.Fatalf("down = %x, want %x (no redundant Shift bracket)", down, want)
	}
	up, err := readBytes(ctx, server, 8)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	if want := []byte{clientMsgKeyEvent, 0, 0, 0, 0, 0, 0, 'A'}; string(up) != string(want) {
		t.Fatalf("up = %x, want %x", up, want)
	}
	if err := <-done; err != nil {
		t.Fatalf("Write: %v", err)
	}
}
