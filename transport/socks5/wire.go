// Copyright 2023 Jigsaw Operations LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package socks5

import (
	"io"
)

// Command is the CMD field of a SOCKS5 request, as enumerated in
// https://datatracker.ietf.org/doc/html/rfc1928#section-4, extended with
// the two non-standard commands Tor's SOCKS port accepts (see
// https://gitweb.torproject.org/torspec.git/tree/socks-extensions.txt).
type Command byte

const (
	CmdConnect      = Command(0x01)
	CmdBind         = Command(0x02)
	CmdUDPAssociate = Command(0x03)
	// CmdTorResolve asks Tor to resolve a domain name to an IP address.
	CmdTorResolve = Command(0xF0)
	// CmdTorResolvePtr asks Tor to reverse-resolve an IP address to a domain name.
	CmdTorResolvePtr = Command(0xF1)
)

// SOCKS5 authentication method identifiers, as specified in
// https://datatracker.ietf.org/doc/html/rfc1928#section-3.
const (
	authMethodNoAuth   = byte(0x00)
	authMethodUserPass = byte(0x02)
	authMethodNoAccept = byte(0xFF)
)

const socksVersion5 = byte(0x05)
const passwordAuthVersion = byte(0x01)

// Credentials is a SOCKS5 RFC 1929 username/password pair. A nil
// *Credentials means the client offers only the "no authentication"
// method.
type Credentials struct {
	Username []byte
	Password []byte
}

// validate enforces the RFC 1929 length constraint: both fields must fit
// in a single length-prefixed byte, and a UNAME/PASSWD field of length
// zero is never valid on the wire.
func (c *Credentials) validate() error {
	if c == nil {
		return nil
	}
	if len(c.Username) < 1 || len(c.Username) > 255 {
		return &InvalidAuthValuesError{Reason: "username must be between 1 and 255 bytes"}
	}
	if len(c.Password) < 1 || len(c.Password) > 255 {
		return &InvalidAuthValuesError{Reason: "password must be between 1 and 255 bytes"}
	}
	return nil
}

// handshakeScratch is a fixed-capacity scratch buffer used to assemble
// and parse SOCKS5 handshake frames without per-call heap allocation.
// The largest single frame the handshake ever builds is the RFC 1929
// sub-negotiation with a maximal username and password (1 + 1 + 255 +
// 1 + 255 = 513 bytes); a request for a maximal domain name needs only
// 4 + 1 + 255 + 2 = 262. Each frame is written as its own, separately
// acknowledged message, so the buffer never holds two frames at once.
type handshakeScratch struct {
	buf [513]byte
}

// methodSelectionRequest returns the wire bytes for the method-selection
// message, offering "no auth" alone or "no auth" plus "username/password"
// depending on whether credentials were supplied.
func (s *handshakeScratch) methodSelectionRequest(cred *Credentials) []byte {
	b := s.buf[:0]
	b = append(b, socksVersion5)
	if cred != nil {
		b = append(b, 2, authMethodNoAuth, authMethodUserPass)
	} else {
		b = append(b, 1, authMethodNoAuth)
	}
	return b
}

// passwordAuthRequest returns the wire bytes for the RFC 1929
// sub-negotiation message.
func (s *handshakeScratch) passwordAuthRequest(cred *Credentials) []byte {
	b := s.buf[:0]
	b = append(b, passwordAuthVersion)
	b = append(b, byte(len(cred.Username)))
	b = append(b, cred.Username...)
	b = append(b, byte(len(cred.Password)))
	b = append(b, cred.Password...)
	return b
}

// request returns the wire bytes for a CONNECT/BIND/UDP ASSOCIATE or Tor
// RESOLVE/RESOLVE_PTR request.
func (s *handshakeScratch) request(cmd Command, target TargetAddr) []byte {
	b := s.buf[:0]
	b = append(b, socksVersion5, byte(cmd), 0x00)
	return appendSOCKS5Address(b, target)
}

// readMethodSelectionReply reads the 2-byte method-selection reply and
// returns the method the server selected.
func readMethodSelectionReply(r io.Reader) (byte, error) {
	var reply [2]byte
	if _, err := io.ReadFull(r, reply[:]); err != nil {
		return 0, err
	}
	if reply[0] != socksVersion5 {
		return 0, ErrInvalidResponseVersion
	}
	if reply[1] == authMethodNoAccept {
		return 0, ErrNoAcceptableAuthMethods
	}
	return reply[1], nil
}

// readPasswordAuthReply reads the 2-byte RFC 1929 sub-negotiation reply.
func readPasswordAuthReply(r io.Reader) error {
	var reply [2]byte
	if _, err := io.ReadFull(r, reply[:]); err != nil {
		return err
	}
	if reply[0] != passwordAuthVersion {
		return ErrInvalidResponseVersion
	}
	if reply[1] != 0x00 {
		return &PasswordAuthFailureError{Status: reply[1]}
	}
	return nil
}

// readReply reads a SOCKS5 request reply: the 3-byte VER/REP/RSV header
// followed by a BND.ADDR/BND.PORT address, using the same two-phase
// domain read as the request path so no bytes belonging to the
// subsequently tunneled stream are ever consumed.
func readReply(r io.Reader) (TargetAddr, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return TargetAddr{}, err
	}
	if hdr[0] != socksVersion5 {
		return TargetAddr{}, ErrInvalidResponseVersion
	}
	if hdr[2] != 0x00 {
		return TargetAddr{}, ErrInvalidReservedByte
	}
	if err := replyCodeFromStatus(hdr[1]); err != nil {
		// The reply still carries a well-formed address even on
		// failure; drain it so the connection is left at a clean
		// frame boundary before surfacing the error.
		readAddr(r) //nolint:errcheck
		return TargetAddr{}, err
	}
	return readAddr(r)
}
