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
	"context"
	"encoding/binary"
	"io"
	"net"

	"github.com/outlinesocks/socks5client/transport"
)

// Socks4Command is the CD field of a SOCKS4 request.
type Socks4Command byte

const (
	Socks4Connect = Socks4Command(0x01)
	Socks4Bind    = Socks4Command(0x02)
)

const socksVersion4 = byte(0x04)
const socks4ReplyVersion = byte(0x00)

// Socks4ReplyCode is the CD field of a SOCKS4 reply, as specified in
// https://www.openssh.com/txt/socks4.protocol.
type Socks4ReplyCode byte

const (
	Socks4Granted              = Socks4ReplyCode(0x5A)
	Socks4Rejected             = Socks4ReplyCode(0x5B)
	Socks4IdentdUnreachable    = Socks4ReplyCode(0x5C)
	Socks4IdentdMismatch       = Socks4ReplyCode(0x5D)
)

func (c Socks4ReplyCode) Error() string {
	switch c {
	case Socks4Rejected:
		return "request rejected or failed"
	case Socks4IdentdUnreachable:
		return "request rejected: client is not running identd"
	case Socks4IdentdMismatch:
		return "request rejected: client's identd could not confirm the user ID"
	default:
		return "unknown SOCKS4 reply code"
	}
}

// appendSocks4Request appends a SOCKS4/SOCKS4a CONNECT or BIND request
// to b. When target is a domain name, the request is framed as SOCKS4a:
// DST.IP is the 0.0.0.x sentinel and the domain follows USERID, both
// NUL-terminated.
func appendSocks4Request(b []byte, cmd Socks4Command, userID string, target TargetAddr) []byte {
	b = append(b, socksVersion4, byte(cmd))
	b = binary.BigEndian.AppendUint16(b, uint16(target.port))
	if target.ip != nil {
		b = append(b, target.ip.To4()...)
		b = append(b, userID...)
		b = append(b, 0x00)
		return b
	}
	b = append(b, 0, 0, 0, 1)
	b = append(b, userID...)
	b = append(b, 0x00)
	b = append(b, target.name...)
	b = append(b, 0x00)
	return b
}

// readSocks4Reply reads the fixed 8-byte SOCKS4 reply.
func readSocks4Reply(r io.Reader) (TargetAddr, error) {
	var reply [8]byte
	if _, err := io.ReadFull(r, reply[:]); err != nil {
		return TargetAddr{}, err
	}
	if reply[0] != socks4ReplyVersion {
		return TargetAddr{}, ErrInvalidResponseVersion
	}
	if reply[1] != byte(Socks4Granted) {
		return TargetAddr{}, Socks4ReplyCode(reply[1])
	}
	port := int(binary.BigEndian.Uint16(reply[2:4]))
	ip := net.IP(append([]byte(nil), reply[4:8]...))
	return TargetAddr{ip: ip, port: port}, nil
}

// DialSocks4 performs a SOCKS4/SOCKS4a CONNECT handshake over proxyConn
// and returns a [Session] wrapping it. userID is sent as the USERID
// field; pass an empty string when the proxy does not require one.
func DialSocks4(ctx context.Context, proxyConn transport.StreamConn, userID string, target TargetAddr) (*Session, error) {
	req := appendSocks4Request(nil, Socks4Connect, userID, target)
	if err := writeAll(ctx, proxyConn, req); err != nil {
		return nil, err
	}
	bound, err := readSocks4Reply(proxyConn)
	if err != nil {
		return nil, err
	}
	return &Session{StreamConn: proxyConn, target: bound, readReply: readSocks4Reply}, nil
}

// BindSocks4 performs a SOCKS4/SOCKS4a BIND handshake. Call Accept on
// the returned [Session] to receive the second reply once a peer
// connects to the bound port.
func BindSocks4(ctx context.Context, proxyConn transport.StreamConn, userID string, target TargetAddr) (*Session, error) {
	req := appendSocks4Request(nil, Socks4Bind, userID, target)
	if err := writeAll(ctx, proxyConn, req); err != nil {
		return nil, err
	}
	bound, err := readSocks4Reply(proxyConn)
	if err != nil {
		return nil, err
	}
	return &Session{StreamConn: proxyConn, target: bound, isBind: true, readReply: readSocks4Reply}, nil
}
