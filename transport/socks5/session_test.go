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
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_BindAcceptsSecondReply(t *testing.T) {
	target := mustAddr(t, "example.com:0")
	conn := testExchange(t, func(c net.Conn) {
		defer c.Close()
		readFullT(t, c, make([]byte, 3))
		c.Write([]byte{0x05, 0x00})
		readFullT(t, c, make([]byte, 4+1+len("example.com")+2))

		firstReply := append([]byte{0x05, 0x00, 0x00}, appendSOCKS5Address(nil, mustAddr(t, "0.0.0.0:4512"))...)
		c.Write(firstReply)

		secondReply := append([]byte{0x05, 0x00, 0x00}, appendSOCKS5Address(nil, mustAddr(t, "203.0.113.9:54321"))...)
		c.Write(secondReply)
	})
	defer conn.Close()

	bound, err := executeHandshake(context.Background(), conn, CmdBind, nil, target)
	require.NoError(t, err)
	require.Equal(t, 4512, bound.Port())

	session := &Session{StreamConn: conn, target: bound, isBind: true, readReply: readReply}
	peer, err := session.Accept(context.Background())
	require.NoError(t, err)
	require.Equal(t, 54321, peer.Port())
	require.Equal(t, peer, session.TargetAddr())
}

func TestSession_AcceptRejectedForNonBind(t *testing.T) {
	session := &Session{isBind: false}
	_, err := session.Accept(context.Background())
	require.ErrorIs(t, err, ErrCommandNotSupported)
}

func TestSession_IntoInnerReturnsUnderlyingStream(t *testing.T) {
	conn := testExchange(t, func(c net.Conn) { c.Close() })
	defer conn.Close()
	session := &Session{StreamConn: conn}
	require.Equal(t, conn, session.IntoInner())
}
