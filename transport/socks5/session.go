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
	"io"

	"github.com/outlinesocks/socks5client/transport"
)

// Session is a completed SOCKS5 exchange: a [transport.StreamConn]
// embedded so the session can be used directly as a byte stream, plus
// the metadata the proxy's reply carried.
//
// For CmdConnect and the Tor resolve commands the session is ready to
// use as-is. For CmdBind, Accept must be called to receive the second
// reply carrying the address of the peer that connected to the bound
// port, as described in https://datatracker.ietf.org/doc/html/rfc1928#section-4.
type Session struct {
	transport.StreamConn
	target    TargetAddr
	isBind    bool
	readReply func(io.Reader) (TargetAddr, error)
}

// TargetAddr is the address the proxy reported in its reply: for
// CmdConnect the address the proxy connected out on, for CmdBind the
// bound listening address until Accept succeeds and the connecting
// peer's address after that, and for CmdTorResolve/CmdTorResolvePtr the
// resolved name or address itself.
func (s *Session) TargetAddr() TargetAddr {
	return s.target
}

// Accept waits for a BIND session's second reply, which carries the
// address of the peer that connected to the proxy-bound port. It is an
// error to call Accept on a session that was not established with a
// BIND command.
func (s *Session) Accept(ctx context.Context) (TargetAddr, error) {
	if !s.isBind {
		return TargetAddr{}, ErrCommandNotSupported
	}
	peer, err := s.readReply(s.StreamConn)
	if err != nil {
		return TargetAddr{}, err
	}
	s.target = peer
	return peer, nil
}

// IntoInner returns the underlying stream. The [Session] keeps its
// reference to the same stream, so calls made on the session afterwards
// still reach that connection.
func (s *Session) IntoInner() transport.StreamConn {
	return s.StreamConn
}
