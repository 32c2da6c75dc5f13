// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package authuc

import (
	"sync"
	"time"

	"github.com/opaqueauth/opaqued/pkg/core/pake"
)

// sessionTable holds the in-progress login handshake states, keyed by
// the user identifier. Entries are single-use: take removes the entry
// it returns, so a second finalization for the same handshake finds
// nothing. Entries older than ttl are treated as absent even before
// the sweeper removes them, so an expired handshake cannot be
// finalized by a slow client.
//
// The table serializes its own map accesses with a mutex and holds no
// lock while the cryptographic computations run, so concurrent
// handshakes of distinct accounts proceed independently.
type sessionTable struct {
	mutex sync.Mutex
	ttl   time.Duration

	entries map[string]sessionEntry
}

type sessionEntry struct {
	state pake.LoginState
	since time.Time
}

func newSessionTable(ttl time.Duration) *sessionTable {
	return &sessionTable{
		ttl:     ttl,
		entries: make(map[string]sessionEntry),
	}
}

// begin records the state handshake state for the username account,
// replacing any prior entry. The replaced handshake is invalidated
// silently; its finalization will observe a missing session.
func (st *sessionTable) begin(username string, state pake.LoginState) {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.entries[username] = sessionEntry{state: state, since: time.Now()}
}

// take removes and returns the live handshake state of the username
// account. The second result is false if no entry exists or the entry
// has outlived the table ttl; an expired entry is removed on the way.
func (st *sessionTable) take(username string) (pake.LoginState, bool) {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	entry, ok := st.entries[username]
	if !ok {
		return nil, false
	}
	delete(st.entries, username)
	if time.Since(entry.since) > st.ttl {
		return nil, false
	}
	return entry.state, true
}

// sweep removes the expired entries and returns how many were
// removed.
func (st *sessionTable) sweep() int {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	n := 0
	for username, entry := range st.entries {
		if time.Since(entry.since) > st.ttl {
			delete(st.entries, username)
			n++
		}
	}
	return n
}
