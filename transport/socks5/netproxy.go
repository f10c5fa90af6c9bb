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

	"golang.org/x/net/proxy"
)

// netProxyDialer adapts a [StreamDialer] to [golang.org/x/net/proxy.Dialer]
// and [golang.org/x/net/proxy.ContextDialer], so it can be plugged into
// any caller built against that ecosystem-standard dialer interface
// instead of this package's own.
type netProxyDialer struct {
	dialer *StreamDialer
}

var (
	_ proxy.Dialer        = (*netProxyDialer)(nil)
	_ proxy.ContextDialer = (*netProxyDialer)(nil)
)

// NewNetProxyDialer wraps d as a [golang.org/x/net/proxy.ContextDialer].
func NewNetProxyDialer(d *StreamDialer) proxy.Dialer {
	return &netProxyDialer{dialer: d}
}

func (d *netProxyDialer) Dial(network, addr string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, addr)
}

func (d *netProxyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return d.dialer.Dial(ctx, addr)
}
