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
	"time"

	"github.com/outlinesocks/socks5client/transport"
)

var noDeadline time.Time

// executeHandshake drives the SOCKS5 client state machine over an
// already-established byte stream to proxyConn: method negotiation,
// optional RFC 1929 username/password sub-negotiation, and the
// CONNECT/BIND/RESOLVE/RESOLVE_PTR request/reply exchange. It returns the
// bound address the proxy reports in its reply.
//
// Each step is a turn: write a message, then read the server's reply to
// it, before assembling the next message. The server's method-selection
// reply decides whether the auth branch runs at all, and that choice in
// turn decides what the request frame that follows even is, so nothing
// past method-selection can be written before its reply is in hand —
// matching the turn-based send/recv sequence in `authenticate()` /
// `execute_with_socket()` in the protocol this engine was ported from.
func executeHandshake(ctx context.Context, proxyConn transport.StreamConn, cmd Command, cred *Credentials, target TargetAddr) (TargetAddr, error) {
	if err := cred.validate(); err != nil {
		return TargetAddr{}, err
	}

	var scratch handshakeScratch
	if err := writeAll(ctx, proxyConn, scratch.methodSelectionRequest(cred)); err != nil {
		return TargetAddr{}, err
	}

	method, err := readMethodSelectionReply(proxyConn)
	if err != nil {
		return TargetAddr{}, err
	}

	switch method {
	case authMethodNoAuth:
		// The server accepted us anonymously even if we also offered
		// password auth; nothing further to negotiate.
	case authMethodUserPass:
		if cred == nil {
			return TargetAddr{}, ErrAuthorizationRequired
		}
		if err := writeAll(ctx, proxyConn, scratch.passwordAuthRequest(cred)); err != nil {
			return TargetAddr{}, err
		}
		if err := readPasswordAuthReply(proxyConn); err != nil {
			return TargetAddr{}, err
		}
	default:
		return TargetAddr{}, ErrUnknownAuthMethod
	}

	if err := writeAll(ctx, proxyConn, scratch.request(cmd, target)); err != nil {
		return TargetAddr{}, err
	}
	return readReply(proxyConn)
}

// writeAll writes b to conn. If ctx has a deadline, it is applied as the
// connection's write deadline for this write; a ctx that is cancelled
// without a deadline does not interrupt the write.
func writeAll(ctx context.Context, conn transport.StreamConn, b []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline) //nolint:errcheck
		defer conn.SetWriteDeadline(noDeadline)
	}
	_, err := conn.Write(b)
	return err
}
