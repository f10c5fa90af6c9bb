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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTargetAddr_IPv4(t *testing.T) {
	a, err := NewTargetAddr("8.8.8.8:53")
	require.NoError(t, err)
	require.False(t, a.IsDomain())
	require.Equal(t, 53, a.Port())
	require.Equal(t, "8.8.8.8:53", a.String())
}

func TestNewTargetAddr_IPv6(t *testing.T) {
	a, err := NewTargetAddr("[2001:db8::1]:443")
	require.NoError(t, err)
	require.False(t, a.IsDomain())
	require.Equal(t, 443, a.Port())
}

func TestNewTargetAddr_Domain(t *testing.T) {
	a, err := NewTargetAddr("example.com:80")
	require.NoError(t, err)
	require.True(t, a.IsDomain())
	require.Equal(t, "example.com:80", a.String())
}

func TestNewTargetAddr_NotHostPort(t *testing.T) {
	_, err := NewTargetAddr("example.com")
	require.Error(t, err)
	var target *InvalidTargetAddressError
	require.ErrorAs(t, err, &target)
}

func TestNewTargetAddr_BadPort(t *testing.T) {
	_, err := NewTargetAddr("example.com:bogus")
	require.Error(t, err)
}

func TestNewTargetAddr_DomainNameTooLong(t *testing.T) {
	_, err := NewTargetAddr(strings.Repeat("a", 256) + ":80")
	require.Error(t, err)
	var target *InvalidTargetAddressError
	require.ErrorAs(t, err, &target)
}

func TestAppendAndReadAddr_RoundTrip(t *testing.T) {
	cases := []string{"1.2.3.4:1", "[::1]:65535", "example.com:8080"}
	for _, hostport := range cases {
		hostport := hostport
		t.Run(hostport, func(t *testing.T) {
			a, err := NewTargetAddr(hostport)
			require.NoError(t, err)

			b := appendSOCKS5Address(nil, a)
			got, err := readAddr(bytes.NewReader(b))
			require.NoError(t, err)
			require.Equal(t, a.port, got.port)
			require.Equal(t, a.name, got.name)
			if a.ip != nil {
				require.True(t, a.ip.Equal(got.ip))
			}
		})
	}
}

func TestReadAddr_DoesNotOverread(t *testing.T) {
	a, err := NewTargetAddr("example.com:80")
	require.NoError(t, err)
	b := appendSOCKS5Address(nil, a)
	tail := []byte("this belongs to the tunneled stream, not the address")
	r := bytes.NewReader(append(append([]byte{}, b...), tail...))

	got, err := readAddr(r)
	require.NoError(t, err)
	require.Equal(t, a.name, got.name)

	rest := make([]byte, len(tail))
	_, err = r.Read(rest)
	require.NoError(t, err)
	require.Equal(t, tail, rest)
}

func TestReadAddr_UnknownAddressType(t *testing.T) {
	_, err := readAddr(bytes.NewReader([]byte{0x7f}))
	require.ErrorIs(t, err, ErrUnknownAddressType)
}
