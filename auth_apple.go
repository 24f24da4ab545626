// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"crypto/aes"
	"crypto/md5" // #nosec G501 - MD5 is required by Apple Remote Desktop's key derivation
	"crypto/rand"
	"io"
	"math/big"
)

const (
	appleDHKeyLength    = 256
	appleCredentialHalf = 64
)

// appleAuth implements Apple Remote Desktop's security type 30: a 2048-bit
// Diffie-Hellman key exchange whose shared secret derives an AES-128-ECB
// key for a null-padded username/password credential block. There is no
// SecurityResult exchange for this type; failure manifests as a transport
// close.
type appleAuth struct {
	username string
	password string
}

func (a *appleAuth) securityType() uint8 { return 30 }

func (a *appleAuth) String() string { return "Apple Remote Desktop (DH)" }

// handshake performs the Apple auth exchange over rw. The exact layout
// mirrors observed wire behavior rather than any public specification
// (see DESIGN.md Open Question #1): two unspecified bytes, a u16 key
// length, the DH prime modulus, and the server's DH public key, all
// appleDHKeyLength bytes each.
func (a *appleAuth) handshake(ctx context.Context, rw io.ReadWriter) error {
	if _, err := readBytes(ctx, rw, 2); err != nil {
		return err
	}

	keyLength, err := readUint16(ctx, rw)
	if err != nil {
		return err
	}
	if int(keyLength) != appleDHKeyLength {
		return protocolError("appleAuth.handshake", "unexpected Apple auth key length", nil)
	}

	primeBytes, err := readBytes(ctx, rw, appleDHKeyLength)
	if err != nil {
		return err
	}
	serverPubBytes, err := readBytes(ctx, rw, appleDHKeyLength)
	if err != nil {
		return err
	}

	prime := new(big.Int).SetBytes(primeBytes)
	serverPub := new(big.Int).SetBytes(serverPubBytes)
	if serverPub.Sign() <= 0 || serverPub.Cmp(prime) >= 0 {
		return cryptoError("appleAuth.handshake", "server DH public key out of range", nil)
	}

	priv, err := rand.Int(rand.Reader, prime)
	if err != nil {
		return cryptoError("appleAuth.handshake", "failed to generate DH private exponent", err)
	}

	generator := big.NewInt(2)
	clientPub := new(big.Int).Exp(generator, priv, prime)
	shared := new(big.Int).Exp(serverPub, priv, prime)

	aesKey := md5.Sum(shared.Bytes()) // #nosec G401 - required by Apple Remote Desktop's key derivation

	block, err := aes.NewCipher(aesKey[:])
	if err != nil {
		return cryptoError("appleAuth.handshake", "failed to create AES cipher", err)
	}

	credentials := make([]byte, appleCredentialHalf*2)
	copy(credentials[0:appleCredentialHalf], a.username)
	copy(credentials[appleCredentialHalf:], a.password)

	ciphertext := make([]byte, len(credentials))
	for off := 0; off < len(credentials); off += aes.BlockSize {
		block.Encrypt(ciphertext[off:off+aes.BlockSize], credentials[off:off+aes.BlockSize])
	}

	clientPubBytes := leftPad(clientPub.Bytes(), appleDHKeyLength)

	if err := writeFull(ctx, rw, ciphertext); err != nil {
		return err
	}
	return writeFull(ctx, rw, clientPubBytes)
}

// leftPad left-pads b with zero bytes to length n, matching the fixed-width
// big-endian integer encoding the RFB "ard" form requires for DH values.
func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
