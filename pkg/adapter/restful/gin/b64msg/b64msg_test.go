// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package b64msg_test

import (
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opaqueauth/opaqued/pkg/adapter/restful/gin/b64msg"
)

func TestRoundTrip(t *testing.T) {
	raw := make([]byte, 96)
	_, err := rand.Read(raw)
	require.NoError(t, err)

	text := b64msg.Encode(raw)
	decoded, err := b64msg.Decode(text, 96)
	require.NoError(t, err, "decoding an encoded buffer")
	require.Equal(t, raw, decoded)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	text := b64msg.Encode(make([]byte, 64))
	_, err := b64msg.Decode(text, 96)
	require.Error(t, err)
	var de *b64msg.DecodeError
	require.True(t, errors.As(err, &de))
	require.Equal(t, 96, de.Expected)
	require.Equal(t, 64, de.Actual)
	require.Contains(t, de.Error(), "64 instead of 96")
}

func TestDecodeRejectsInvalidAlphabet(t *testing.T) {
	for name, text := range map[string]string{
		"std-alphabet": strings.Repeat("+", 44),
		"garbage":      "not base64 at all!",
		"no-padding":   b64msg.Encode(make([]byte, 32))[:43],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := b64msg.Decode(text, 32)
			var de *b64msg.DecodeError
			require.True(t, errors.As(err, &de))
			require.Error(t, de.Err, "alphabet errors carry a cause")
		})
	}
}

func TestDecodeEmptyText(t *testing.T) {
	_, err := b64msg.Decode("", 32)
	var de *b64msg.DecodeError
	require.True(t, errors.As(err, &de))
	require.Equal(t, 0, de.Actual)
}
