// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"net"
	"sync"
	"time"
)

// sessionState tracks the client-side idea of which keys and pointer
// buttons are currently held, so Keyboard.Write can decide whether a
// character needs its own Shift bracket and Mouse.Hold can compose with
// buttons already down.
type sessionState struct {
	mu       sync.Mutex
	heldKeys []uint32
	x, y     uint16
	mask     ButtonMask
}

// pushKey records sym as held.
func (s *sessionState) pushKey(sym uint32) {
	s.mu.Lock()
	s.heldKeys = append(s.heldKeys, sym)
	s.mu.Unlock()
}

// popKey removes one occurrence of sym from the held set, innermost first.
func (s *sessionState) popKey(sym uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.heldKeys) - 1; i >= 0; i-- {
		if s.heldKeys[i] == sym {
			s.heldKeys = append(s.heldKeys[:i], s.heldKeys[i+1:]...)
			return
		}
	}
}

// isKeyHeld reports whether sym is currently recorded as held.
func (s *sessionState) isKeyHeld(sym uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.heldKeys {
		if h == sym {
			return true
		}
	}
	return false
}

// setPosition records the pointer's last sent coordinates.
func (s *sessionState) setPosition(x, y uint16) {
	s.mu.Lock()
	s.x, s.y = x, y
	s.mu.Unlock()
}

// position returns the pointer's last sent coordinates.
func (s *sessionState) position() (x, y uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

// mouseMask returns the pointer's currently held button mask.
func (s *sessionState) mouseMask() ButtonMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mask
}

// setMaskBits ORs bits into the held button mask and returns the new mask.
func (s *sessionState) setMaskBits(bits ButtonMask) ButtonMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mask |= bits
	return s.mask
}

// clearMaskBits clears bits from the held button mask and returns the new mask.
func (s *sessionState) clearMaskBits(bits ButtonMask) ButtonMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mask &^= bits
	return s.mask
}

// config collects the options a SessionOption mutates before Connect dials.
type config struct {
	username       string
	password       string
	opener         Opener
	logger         Logger
	connectTimeout time.Duration
	exclusive      bool
	onBell         func()
	manualRead     bool
}

// SessionOption configures a Session before the handshake runs.
type SessionOption func(*config)

// WithAuth supplies credentials for security negotiation. A non-empty
// username selects Apple Remote Desktop auth (security type 30); an empty
// username with a non-empty password prefers VNC password auth (type 2),
// falling back to None (type 1) when the server does not offer type 2.
func WithAuth(username, password string) SessionOption {
	return func(cfg *config) {
		cfg.username = username
		cfg.password = password
	}
}

// WithOpener overrides how the Session obtains its transport connection,
// e.g. to tunnel over SSH or WebSocket instead of dialing TCP directly.
func WithOpener(opener Opener) SessionOption {
	return func(cfg *config) {
		cfg.opener = opener
	}
}

// WithLogger sets the Session's structured logger. The default is NoOpLogger.
func WithLogger(logger Logger) SessionOption {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithConnectTimeout bounds the time Connect may spend opening the
// transport and completing the handshake.
func WithConnectTimeout(timeout time.Duration) SessionOption {
	return func(cfg *config) {
		cfg.connectTimeout = timeout
	}
}

// WithExclusive requests exclusive access via ClientInit's shared flag,
// asking the server to disconnect other clients.
func WithExclusive(exclusive bool) SessionOption {
	return func(cfg *config) {
		cfg.exclusive = exclusive
	}
}

// WithBellHandler registers a callback invoked on the reader goroutine each
// time the server sends a Bell message.
func WithBellHandler(onBell func()) SessionOption {
	return func(cfg *config) {
		cfg.onBell = onBell
	}
}

// WithManualRead disables the background reader goroutine Connect would
// otherwise spawn. Callers that pass true must drive the message loop
// themselves by calling Session.Read in a loop; this is the only way to
// read server messages when this option is set.
func WithManualRead(manual bool) SessionOption {
	return func(cfg *config) {
		cfg.manualRead = manual
	}
}

// Session is a live connection to an RFB server: the transport, the
// decoded Framebuffer, and the Keyboard/Mouse/Clipboard input surfaces that
// share its write lock. By default, one reader goroutine started by Connect
// owns all reads from conn; WithManualRead suppresses it so a caller can
// drive reads itself via Read instead. Callers only ever write, through
// Keyboard/Mouse/Clipboard or FramebufferUpdateRequest, serialized by writeMu.
type Session struct {
	conn   net.Conn
	opener Opener

	writeMu sync.Mutex

	logger Logger
	onBell func()

	ctx    context.Context
	cancel context.CancelFunc

	framebuffer *Framebuffer
	clipboard   *Clipboard
	keyboard    *Keyboard
	mouse       *Mouse
	state       sessionState

	pfMu        sync.RWMutex
	pixelFormat PixelFormat

	desktopName string

	closeOnce sync.Once
	done      chan struct{}
	readErr   error
	readErrMu sync.Mutex
}

// Connect dials addr (host:port), performs the full RFB handshake, and, by
// default, starts the background reader goroutine (suppressed by
// WithManualRead). The returned Session is ready for Keyboard/Mouse/
// Clipboard use and framebuffer reads as soon as Connect returns; the
// caller must eventually call Close.
func Connect(ctx context.Context, addr string, opts ...SessionOption) (*Session, error) {
	cfg := &config{
		opener: DialTCP(),
		logger: &NoOpLogger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dialCtx := ctx
	var dialCancel context.CancelFunc
	if cfg.connectTimeout > 0 {
		dialCtx, dialCancel = context.WithTimeout(ctx, cfg.connectTimeout)
		defer dialCancel()
	}

	conn, err := cfg.opener.Open(dialCtx, addr)
	if err != nil {
		return nil, err
	}

	sessionCtx, cancel := context.WithCancel(ctx)

	s := &Session{
		conn:   conn,
		opener: cfg.opener,
		logger: cfg.logger,
		onBell: cfg.onBell,
		ctx:    sessionCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.clipboard = &Clipboard{s: s}
	s.keyboard = &Keyboard{s: s}
	s.mouse = &Mouse{s: s}

	if err := s.handshake(dialCtx, cfg); err != nil {
		cancel()
		conn.Close()
		return nil, err
	}

	if !cfg.manualRead {
		go s.readLoop()
	}

	return s, nil
}

// Keyboard returns the session's keyboard input surface.
func (s *Session) Keyboard() *Keyboard { return s.keyboard }

// Mouse returns the session's pointer input surface.
func (s *Session) Mouse() *Mouse { return s.mouse }

// Clipboard returns the session's clipboard surface.
func (s *Session) Clipboard() *Clipboard { return s.clipboard }

// Framebuffer returns the session's decoded framebuffer mirror.
func (s *Session) Framebuffer() *Framebuffer { return s.framebuffer }

// DesktopName returns the name the server sent in ServerInit.
func (s *Session) DesktopName() string { return s.desktopName }

// Screens returns the currently detected physical display rectangles,
// recomputed from the framebuffer's written mask on every call.
func (s *Session) Screens() []Screen {
	written, width, height := s.framebuffer.writtenSnapshot()
	return detectScreens(written, width, height)
}

// getPixelFormat returns the pixel format the decoder uses: the server's
// ServerInit format until the client sends SetPixelFormat, and
// canonicalPixelFormat from then on. A server that ignores SetPixelFormat
// is not detected; its pixels are decoded under the canonical layout.
func (s *Session) getPixelFormat() PixelFormat {
	s.pfMu.RLock()
	defer s.pfMu.RUnlock()
	return s.pixelFormat
}

func (s *Session) setPixelFormatState(pf PixelFormat) {
	s.pfMu.Lock()
	s.pixelFormat = pf
	s.pfMu.Unlock()
}

// RequestUpdate sends a FramebufferUpdateRequest for the given region.
func (s *Session) RequestUpdate(ctx context.Context, incremental bool, x, y, w, h uint16) error {
	return s.framebufferUpdateRequest(ctx, incremental, x, y, w, h)
}

// Read advances the message loop by exactly one message. It is for callers
// that passed WithManualRead(true) to Connect and want to drive dispatch
// themselves instead of the background reader goroutine Connect spawns by
// default; calling it concurrently with that goroutine races on conn reads.
func (s *Session) Read(ctx context.Context) error {
	return s.readServerMessage(ctx)
}

// readLoop is the session's single reader goroutine: it advances the
// message loop until a read fails or the context is cancelled, then closes
// the session so blocked writers observe the failure.
func (s *Session) readLoop() {
	defer close(s.done)
	for {
		if err := s.readServerMessage(s.ctx); err != nil {
			s.readErrMu.Lock()
			s.readErr = err
			s.readErrMu.Unlock()
			s.logger.Debug("read loop exiting", Field{Key: "error", Value: err})
			_ = s.Close()
			return
		}
	}
}

// Err returns the error that terminated the background read loop, or nil
// while the loop is still running. A loop ended by Close records the read
// error that closing the session caused.
func (s *Session) Err() error {
	s.readErrMu.Lock()
	defer s.readErrMu.Unlock()
	return s.readErr
}

// Done returns a channel closed once the read loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close releases all held keys and pointer buttons best-effort, cancels the
// session context, and closes the transport. Close is safe to call more
// than once and from any goroutine, including the reader goroutine itself.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.releaseHeldInput()
		s.cancel()
		err = s.conn.Close()
	})
	return err
}

// releaseHeldInput sends up KeyEvents and a zero-mask PointerEvent for any
// input left held across a Close, so an interrupted scoped Hold does not
// leave keys or buttons stuck down on the server after the session ends.
func (s *Session) releaseHeldInput() {
	releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s.state.mu.Lock()
	held := append([]uint32(nil), s.state.heldKeys...)
	s.state.heldKeys = nil
	s.state.mu.Unlock()

	for i := len(held) - 1; i >= 0; i-- {
		_ = s.keyEvent(releaseCtx, held[i], false)
	}

	if s.state.mouseMask() != 0 {
		x, y := s.state.position()
		s.state.clearMaskBits(ButtonMask(0xff))
		_ = s.pointerEvent(releaseCtx, 0, x, y)
	}
}
