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

// Package economy derives the world's macro aggregates from user balances,
// snake occupancy, and the active policy parameters. The derivation itself
// is a pure function; a thin cached service wraps it with store reads and
// the purchase write path.
package economy

import "time"

// Price bounds applied to the raw price level.
const (
	priceFloor   = 0.2
	priceCeiling = 5.0
)

// Inputs are the raw quantities one derivation consumes. The transport
// layer owns the wire field names; these are plain values.
type Inputs struct {
	SumMi         int64
	MGov          int64
	DeltaMIssue   int64
	CapDeltaM     int64
	DeltaMBuy     int64
	KSnakes       int64
	DeltaKObs     int64
	KLand         int64
	AProductivity float64
	VVelocity     float64
	ParamsVersion int
}

// State is one derived macro state, tagged with the period it was computed
// for and echoing the inputs it was computed from.
type State struct {
	PeriodKey string
	M         int64
	DeltaM    int64
	K         int64
	Y         float64
	P         float64
	PClamped  float64
	Pi        float64
	AWorld    int64
	MWhite    int64
	Inputs    Inputs
}

// PeriodKeyUTC formats the YYYYMMDDHH accumulation window containing t.
func PeriodKeyUTC(t time.Time) string {
	return t.UTC().Format("2006010215")
}

// ComputeEconomyV1 derives the macro state:
//
//	m       = sum_mi + m_g
//	delta_m = min(cap_delta_m, delta_m_issue) + delta_m_buy
//	k       = k_snakes + delta_k_obs
//	y       = a_productivity * k
//	p       = (m * v_velocity) / max(1.0, y), clamped to [0.2, 5.0]
//	pi      = delta_m / max(1, m)
//	a_world = k_land * m
//	m_white = max(0, a_world - k)
func ComputeEconomyV1(in Inputs, periodKey string) State {
	m := in.SumMi + in.MGov

	issue := in.DeltaMIssue
	if in.CapDeltaM < issue {
		issue = in.CapDeltaM
	}
	deltaM := issue + in.DeltaMBuy

	k := in.KSnakes + in.DeltaKObs
	y := in.AProductivity * float64(k)

	yDiv := y
	if yDiv < 1.0 {
		yDiv = 1.0
	}
	p := (float64(m) * in.VVelocity) / yDiv
	pClamped := p
	if pClamped < priceFloor {
		pClamped = priceFloor
	}
	if pClamped > priceCeiling {
		pClamped = priceCeiling
	}

	mDiv := m
	if mDiv < 1 {
		mDiv = 1
	}
	pi := float64(deltaM) / float64(mDiv)

	aWorld := in.KLand * m
	mWhite := aWorld - k
	if mWhite < 0 {
		mWhite = 0
	}

	return State{
		PeriodKey: periodKey,
		M:         m,
		DeltaM:    deltaM,
		K:         k,
		Y:         y,
		P:         p,
		PClamped:  pClamped,
		Pi:        pi,
		AWorld:    aWorld,
		MWhite:    mWhite,
		Inputs:    in,
	}
}
