// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "context"

// Keyboard is the session's keyboard input surface: press, hold, and type
// operations that write KeyEvent messages through the session's write lock.
type Keyboard struct {
	s *Session
}

// Press sends a down KeyEvent for each named key in order, then an up
// KeyEvent for each in reverse order. Names are either symbolic (e.g.
// "Ctrl", "Return", "F1") or a single character naming itself.
func (k *Keyboard) Press(ctx context.Context, names ...string) error {
	release, err := k.Hold(ctx, names...)
	if err != nil {
		return err
	}
	return release()
}

// Hold sends a down KeyEvent for each named key in order and returns a
// release function that sends the matching up KeyEvents in reverse order.
// The caller must invoke the returned function exactly once, typically via
// defer, to guarantee release on all exit paths including panics:
//
//	release, err := kb.Hold(ctx, "Ctrl", "c")
//	if err != nil { return err }
//	defer release()
func (k *Keyboard) Hold(ctx context.Context, names ...string) (func() error, error) {
	syms := make([]uint32, 0, len(names))
	for _, name := range names {
		sym, ok := keysymForName(name)
		if !ok {
			return nil, validationError("Keyboard.Hold", "unknown key name: "+name, nil)
		}
		syms = append(syms, sym)
	}

	pressed := 0
	for _, sym := range syms {
		if err := k.s.keyEvent(ctx, sym, true); err != nil {
			k.releasePartial(ctx, syms[:pressed])
			return nil, err
		}
		k.s.state.pushKey(sym)
		pressed++
	}

	released := false
	release := func() error {
		if released {
			return nil
		}
		released = true
		return k.releaseAll(ctx, syms)
	}
	return release, nil
}

// releaseAll sends up KeyEvents for syms in reverse order, best-effort —
// it continues past write failures so every key gets an attempted release,
// returning the first error encountered.
func (k *Keyboard) releaseAll(ctx context.Context, syms []uint32) error {
	var firstErr error
	for i := len(syms) - 1; i >= 0; i-- {
		k.s.state.popKey(syms[i])
		if err := k.s.keyEvent(ctx, syms[i], false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// releasePartial releases a prefix of syms that were pressed before a
// failure interrupted Hold, preserving symmetry even on partial failure.
func (k *Keyboard) releasePartial(ctx context.Context, syms []uint32) {
	for i := len(syms) - 1; i >= 0; i-- {
		k.s.state.popKey(syms[i])
		_ = k.s.keyEvent(ctx, syms[i], false)
	}
}

// Write decomposes text into KeyEvents, bracketing characters that need
// Shift on a US layout (uppercase letters, shifted symbols) with a Shift
// press/release unless Shift is already held by an enclosing Hold scope.
func (k *Keyboard) Write(ctx context.Context, text string) error {
	events, err := textToEvents(text, k.s.state.isKeyHeld(keysymShiftL))
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := k.s.keyEvent(ctx, ev.keysym, ev.down); err != nil {
			return err
		}
		if ev.down {
			k.s.state.pushKey(ev.keysym)
		} else {
			k.s.state.popKey(ev.keysym)
		}
	}
	return nil
}
