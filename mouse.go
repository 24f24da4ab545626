// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "context"

// Mouse is the session's pointer input surface.
type Mouse struct {
	s *Session
}

// Move sends a PointerEvent at (x, y) with the currently held button mask.
func (m *Mouse) Move(ctx context.Context, x, y uint16) error {
	m.s.state.setPosition(x, y)
	return m.s.pointerEvent(ctx, m.s.state.mouseMask(), x, y)
}

// Click presses then immediately releases button at the current position.
func (m *Mouse) Click(ctx context.Context, button ButtonMask) error {
	release, err := m.Hold(ctx, button)
	if err != nil {
		return err
	}
	return release()
}

// MiddleClick clicks the middle mouse button.
func (m *Mouse) MiddleClick(ctx context.Context) error { return m.Click(ctx, ButtonMiddle) }

// RightClick clicks the right mouse button.
func (m *Mouse) RightClick(ctx context.Context) error { return m.Click(ctx, ButtonRight) }

// ScrollUp sends a press+release of the scroll-up button.
func (m *Mouse) ScrollUp(ctx context.Context) error { return m.Click(ctx, ButtonScrollUp) }

// ScrollDown sends a press+release of the scroll-down button.
func (m *Mouse) ScrollDown(ctx context.Context) error { return m.Click(ctx, ButtonScrollDown) }

// Hold sets the given buttons in the pointer mask, sends a PointerEvent,
// and returns a release function that clears them and sends another
// PointerEvent. The caller must invoke the returned function exactly once,
// typically via defer, to guarantee the mask is cleared on all exit paths.
func (m *Mouse) Hold(ctx context.Context, buttons ...ButtonMask) (func() error, error) {
	x, y := m.s.state.position()

	var combined ButtonMask
	for _, b := range buttons {
		combined |= b
	}

	newMask := m.s.state.setMaskBits(combined)
	if err := m.s.pointerEvent(ctx, newMask, x, y); err != nil {
		m.s.state.clearMaskBits(combined)
		return nil, err
	}

	released := false
	release := func() error {
		if released {
			return nil
		}
		released = true
		clearedMask := m.s.state.clearMaskBits(combined)
		cx, cy := m.s.state.position()
		return m.s.pointerEvent(ctx, clearedMask, cx, cy)
	}
	return release, nil
}
