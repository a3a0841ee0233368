// Copyright 2026 Esteban Alvarez. All Rights Reserved.
//
// Created: August 2026
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	tokenLength = 32
	tokenChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Login attempts per username are throttled to blunt credential
	// stuffing without affecting normal clients.
	loginRatePerSec = 2
	loginBurst      = 5
)

// AuthTable maps bearer tokens to user ids. Tokens are opaque 32-character
// alphanumerics and live for the process lifetime.
type AuthTable struct {
	mu       sync.Mutex
	tokens   map[string]int
	rng      *rand.Rand
	limiters map[string]*rate.Limiter
}

// NewAuthTable returns an empty token table.
func NewAuthTable() *AuthTable {
	return &AuthTable{
		tokens:   make(map[string]int),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		limiters: make(map[string]*rate.Limiter),
	}
}

// IssueToken mints a fresh token for the user.
func (a *AuthTable) IssueToken(userID int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := make([]byte, tokenLength)
	for i := range b {
		b[i] = tokenChars[a.rng.Intn(len(tokenChars))]
	}
	token := string(b)
	a.tokens[token] = userID
	return token
}

// UserForToken resolves a token to its user id.
func (a *AuthTable) UserForToken(token string) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	uid, ok := a.tokens[token]
	return uid, ok
}

// AllowLogin reports whether another login attempt for the username is
// within the throttle budget.
func (a *AuthTable) AllowLogin(username string) bool {
	a.mu.Lock()
	lim, ok := a.limiters[username]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(loginRatePerSec), loginBurst)
		a.limiters[username] = lim
	}
	a.mu.Unlock()
	return lim.Allow()
}

// bearerUser extracts and resolves the request's bearer token. The zero
// return with ok=false covers both a missing header and an unknown token.
func (a *AuthTable) bearerUser(r *http.Request) (int, bool) {
	const prefix = "Bearer "
	v := r.Header.Get("Authorization")
	if !strings.HasPrefix(v, prefix) {
		return 0, false
	}
	return a.UserForToken(strings.TrimPrefix(v, prefix))
}
