// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"fmt"
	"io"
)

// clientAuth is implemented by each supported RFB security type.
type clientAuth interface {
	securityType() uint8
	handshake(ctx context.Context, rw io.ReadWriter) error
	String() string
}

// noneAuth implements RFB security type 1: no authentication.
type noneAuth struct{}

func (noneAuth) securityType() uint8 { return 1 }

func (noneAuth) handshake(context.Context, io.ReadWriter) error { return nil }

func (noneAuth) String() string { return "None" }

// passwordAuth implements RFB security type 2: the DES challenge-response
// scheme described in security_vnc.go.
type passwordAuth struct {
	password string
}

func (passwordAuth) securityType() uint8 { return 2 }

func (a passwordAuth) handshake(ctx context.Context, rw io.ReadWriter) error {
	challenge, err := readBytes(ctx, rw, vncChallengeSize)
	if err != nil {
		return err
	}

	response, err := encryptVNCChallenge(a.password, challenge)
	if err != nil {
		return err
	}

	return writeFull(ctx, rw, response)
}

func (passwordAuth) String() string { return "VNC Password" }

// negotiateSecurity selects a security type and its handshake implementation
// from the server's offered list, following the fixed priority rule: a
// supplied username requires Apple auth (type 30); otherwise a supplied
// password prefers VNC auth (type 2); otherwise None (type 1) is preferred.
// There is no generic pluggable negotiation — the rule is deterministic.
func negotiateSecurity(serverTypes []uint8, username, password string) (clientAuth, uint8, error) {
	has := func(t uint8) bool {
		for _, st := range serverTypes {
			if st == t {
				return true
			}
		}
		return false
	}

	if username != "" {
		if !has(30) {
			return nil, 0, authUnsupportedError("negotiateSecurity",
				fmt.Sprintf("username supplied but server does not offer Apple auth: %v", serverTypes), nil)
		}
		return &appleAuth{username: username, password: password}, 30, nil
	}

	if password != "" {
		if has(2) {
			return passwordAuth{password: password}, 2, nil
		}
		if has(1) {
			return noneAuth{}, 1, nil
		}
		return nil, 0, authUnsupportedError("negotiateSecurity",
			fmt.Sprintf("password supplied but server offers neither VNC nor None auth: %v", serverTypes), nil)
	}

	if has(1) {
		return noneAuth{}, 1, nil
	}
	if has(2) {
		return passwordAuth{}, 2, nil
	}

	return nil, 0, authUnsupportedError("negotiateSecurity",
		fmt.Sprintf("no supported security type on offer: %v", serverTypes), nil)
}
