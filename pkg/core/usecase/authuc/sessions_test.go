// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package authuc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubState struct {
	id int
}

func (s *stubState) IsLoginState() {
}

func TestSessionTableTakeRemovesEntry(t *testing.T) {
	table := newSessionTable(time.Minute)
	table.begin("alice", &stubState{id: 1})

	state, ok := table.take("alice")
	require.True(t, ok, "live entry must be taken")
	require.Equal(t, &stubState{id: 1}, state)

	_, ok = table.take("alice")
	require.False(t, ok, "taken entry must be gone")
}

func TestSessionTableBeginReplaces(t *testing.T) {
	table := newSessionTable(time.Minute)
	table.begin("alice", &stubState{id: 1})
	table.begin("alice", &stubState{id: 2})

	state, ok := table.take("alice")
	require.True(t, ok)
	require.Equal(
		t, &stubState{id: 2}, state,
		"a new handshake must replace the prior one",
	)
}

func TestSessionTableAccountsAreIndependent(t *testing.T) {
	table := newSessionTable(time.Minute)
	table.begin("alice", &stubState{id: 1})
	table.begin("bob", &stubState{id: 2})

	state, ok := table.take("alice")
	require.True(t, ok)
	require.Equal(t, &stubState{id: 1}, state)

	state, ok = table.take("bob")
	require.True(t, ok)
	require.Equal(t, &stubState{id: 2}, state)
}

func TestSessionTableExpiry(t *testing.T) {
	table := newSessionTable(10 * time.Millisecond)
	table.begin("alice", &stubState{id: 1})
	time.Sleep(30 * time.Millisecond)

	_, ok := table.take("alice")
	require.False(t, ok, "expired entry must read as absent")
	require.Empty(t, table.entries, "expired entry must be removed")
}

func TestSessionTableSweep(t *testing.T) {
	table := newSessionTable(10 * time.Millisecond)
	table.begin("alice", &stubState{id: 1})
	table.begin("bob", &stubState{id: 2})
	time.Sleep(30 * time.Millisecond)
	table.begin("carol", &stubState{id: 3})

	require.Equal(t, 2, table.sweep(), "two entries must expire")
	require.Len(t, table.entries, 1, "fresh entry must survive")

	state, ok := table.take("carol")
	require.True(t, ok)
	require.Equal(t, &stubState{id: 3}, state)
}
