// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"net"

	"golang.org/x/crypto/ssh"
)

// SSHOpener opens the RFB transport as a direct-tcpip channel through an
// SSH connection, for servers that only expose VNC on localhost and expect
// clients to tunnel in over SSH.
type SSHOpener struct {
	sshAddr string
	config  *ssh.ClientConfig
}

// NewSSHOpener returns an Opener that dials sshAddr, authenticates with
// config, and tunnels the RFB byte stream through the resulting SSH
// connection to whatever address Connect is given.
func NewSSHOpener(sshAddr string, config *ssh.ClientConfig) *SSHOpener {
	return &SSHOpener{sshAddr: sshAddr, config: config}
}

// Open dials the SSH server, then asks it to open a direct-tcpip channel to
// addr and returns that channel wrapped as a net.Conn.
func (o *SSHOpener) Open(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	tcpConn, err := d.DialContext(ctx, "tcp", o.sshAddr)
	if err != nil {
		return nil, transportClosedError("SSHOpener.Open", "failed to dial SSH server", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, o.sshAddr, o.config)
	if err != nil {
		tcpConn.Close()
		return nil, transportClosedError("SSHOpener.Open", "SSH handshake failed", err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	conn, err := client.Dial("tcp", addr)
	if err != nil {
		client.Close()
		return nil, transportClosedError("SSHOpener.Open", "failed to open SSH direct-tcpip channel", err)
	}
	return conn, nil
}
