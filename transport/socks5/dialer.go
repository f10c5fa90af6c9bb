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
	"errors"
	"io"

	"github.com/outlinesocks/socks5client/transport"
)

var (
	errNilProxies    = errors.New("socks5: proxy address source must not be nil")
	errNilBaseDialer = errors.New("socks5: base dialer must not be nil")
)

// ProxyAddressSource yields candidate proxy addresses (host:port) one at
// a time. Next returns [io.EOF] once the source is exhausted, the same
// convention [bufio.Scanner] and [database/sql.Rows] use for
// single-pass iteration.
type ProxyAddressSource interface {
	Next() (string, error)
}

// sliceAddressSource is the trivial [ProxyAddressSource] over a fixed
// list, used when the caller has a single proxy or a small static pool.
type sliceAddressSource struct {
	addrs []string
	next  int
}

// NewStaticAddressSource returns a [ProxyAddressSource] that yields each
// of addrs once, in order.
func NewStaticAddressSource(addrs ...string) ProxyAddressSource {
	return &sliceAddressSource{addrs: addrs}
}

func (s *sliceAddressSource) Next() (string, error) {
	if s.next >= len(s.addrs) {
		return "", io.EOF
	}
	addr := s.addrs[s.next]
	s.next++
	return addr, nil
}

// StreamDialer dials a target address through a SOCKS5 proxy, trying
// each candidate a [ProxyAddressSource] yields until one accepts a
// connection or the source is exhausted. The handshake then runs against
// that candidate only; its result, success or error, is returned.
type StreamDialer struct {
	proxies    ProxyAddressSource
	baseDialer transport.StreamDialer
	cred       *Credentials
}

var _ transport.StreamDialer = (*StreamDialer)(nil)

// NewStreamDialer creates a [StreamDialer] that reaches its proxy
// candidates using baseDialer, trying addresses from proxies in order.
func NewStreamDialer(proxies ProxyAddressSource, baseDialer transport.StreamDialer) (*StreamDialer, error) {
	if proxies == nil {
		return nil, errNilProxies
	}
	if baseDialer == nil {
		return nil, errNilBaseDialer
	}
	return &StreamDialer{proxies: proxies, baseDialer: baseDialer}, nil
}

// SetCredentials configures RFC 1929 username/password authentication
// for subsequent dials. Both username and password must be between 1
// and 255 bytes, the limit imposed by the single-byte length prefix the
// sub-negotiation frame uses.
func (d *StreamDialer) SetCredentials(username, password []byte) error {
	cred := &Credentials{Username: username, Password: password}
	if err := cred.validate(); err != nil {
		return err
	}
	d.cred = cred
	return nil
}

// Dial implements [transport.StreamDialer] by issuing a CmdConnect
// handshake and returning the resulting stream. Only failures to reach a
// candidate proxy at all are swallowed and retried against the next one;
// once a proxy is reached, any handshake/protocol error it reports (bad
// credentials, no acceptable auth method, a SOCKS error reply) is
// returned to the caller as-is. [ErrProxyServerUnreachable] is returned
// only once the address source itself is exhausted.
func (d *StreamDialer) Dial(ctx context.Context, raddr string) (transport.StreamConn, error) {
	target, err := NewTargetAddr(raddr)
	if err != nil {
		return nil, err
	}
	session, err := d.dialCommand(ctx, CmdConnect, target)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DialCommand runs the given SOCKS5 command (CONNECT, BIND, or one of
// the Tor RESOLVE extensions) against the target and returns the
// resulting [Session].
func (d *StreamDialer) DialCommand(ctx context.Context, cmd Command, target TargetAddr) (*Session, error) {
	return d.dialCommand(ctx, cmd, target)
}

func (d *StreamDialer) dialCommand(ctx context.Context, cmd Command, target TargetAddr) (*Session, error) {
	for {
		proxyAddr, err := d.proxies.Next()
		if err != nil {
			return nil, ErrProxyServerUnreachable
		}
		conn, err := d.baseDialer.Dial(ctx, proxyAddr)
		if err != nil {
			continue
		}
		bindAddr, err := executeHandshake(ctx, conn, cmd, d.cred, target)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return &Session{StreamConn: conn, target: bindAddr, isBind: cmd == CmdBind, readReply: readReply}, nil
	}
}

// ResolveName asks the proxy to resolve name to an IP address using
// Tor's non-standard RESOLVE command. It is only meaningful against a
// Tor SOCKS port; a conforming SOCKS5 server will reject the command
// with [ErrCommandNotSupported].
func (d *StreamDialer) ResolveName(ctx context.Context, name string) (TargetAddr, error) {
	session, err := d.dialCommand(ctx, CmdTorResolve, TargetAddr{name: name})
	if err != nil {
		return TargetAddr{}, err
	}
	defer session.Close()
	return session.TargetAddr(), nil
}

// ResolvePtr asks the proxy to reverse-resolve addr to a domain name
// using Tor's non-standard RESOLVE_PTR command.
func (d *StreamDialer) ResolvePtr(ctx context.Context, addr TargetAddr) (TargetAddr, error) {
	session, err := d.dialCommand(ctx, CmdTorResolvePtr, addr)
	if err != nil {
		return TargetAddr{}, err
	}
	defer session.Close()
	return session.TargetAddr(), nil
}
