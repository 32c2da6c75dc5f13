// Copyright (c) 2025 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package authuc

import (
	"errors"
	"fmt"
	"time"
)

// Option is a functional option for the authentication use case.
type Option func(uc *UseCase) error

// WithSessionTTL option configures an authentication UseCase instance
// to expire the in-progress login handshakes which stay unfinalized
// for longer than the given ttl duration. In absence of this option,
// handshakes expire after two minutes. This option may be passed to
// the New() function.
func WithSessionTTL(ttl time.Duration) Option {
	return func(uc *UseCase) error {
		if d := int64(ttl); d <= 0 {
			return fmt.Errorf("session ttl (%d) is not positive", d)
		}
		if uc.sessions.ttl != 0 {
			return errors.New("session ttl is already configured")
		}
		uc.sessions.ttl = ttl
		return nil
	}
}
