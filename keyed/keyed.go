// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package keyed provides per-key mutual exclusion for the artifact
// engines. Locks are never reclaimed; key cardinality is bounded by
// tickers and trading days, and an idle mutex is a few words.
package keyed

import (
	"sync"

	"github.com/alphadose/haxmap"
)

type Flight struct {
	locks *haxmap.Map[string, *sync.Mutex]
	done  *haxmap.Map[string, struct{}]
}

func New() *Flight {
	return &Flight{
		locks: haxmap.New[string, *sync.Mutex](),
		done:  haxmap.New[string, struct{}](),
	}
}

// Execute runs work while holding the exclusive lock for key. With
// once set, a completion recorded by any earlier caller elides work
// entirely; the check is repeated under the lock so racing callers
// observe the winner's completion instead of re-running. A panic in
// work propagates to the caller.
func (f *Flight) Execute(key string, once bool, work func() error) error {
	if once {
		if _, ok := f.done.Get(key); ok {
			return nil
		}
	}

	mu, _ := f.locks.GetOrSet(key, &sync.Mutex{})
	mu.Lock()
	defer mu.Unlock()

	if once {
		if _, ok := f.done.Get(key); ok {
			return nil
		}
	}

	if err := work(); err != nil {
		return err
	}

	if once {
		f.done.Set(key, struct{}{})
	}

	return nil
}
