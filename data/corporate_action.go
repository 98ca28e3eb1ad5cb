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
package data

import "slices"

type ActionKind int

const (
	ActionSplit ActionKind = iota
	ActionDividend
)

// CorporateAction is either a split (SplitFactor = oldShares/newShares)
// or a cash dividend (Cash = amount per share on the ex-date).
// ReferencePrice is the raw close on ReferenceDate, the last trading
// day before the event.
type CorporateAction struct {
	Kind           ActionKind
	Date           Day
	SplitFactor    float64
	Cash           float64
	ReferenceDate  Day
	ReferencePrice float64
}

func NewSplit(date Day, factor float64) CorporateAction {
	return CorporateAction{Kind: ActionSplit, Date: date, SplitFactor: factor}
}

func NewDividend(exDate Day, cash float64) CorporateAction {
	return CorporateAction{Kind: ActionDividend, Date: exDate, Cash: cash}
}

// SortActions orders actions ascending by event date; a split sorts
// before a dividend on the same date.
func SortActions(actions []CorporateAction) {
	slices.SortFunc(actions, func(a, b CorporateAction) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}

		return int(a.Kind) - int(b.Kind)
	})
}
