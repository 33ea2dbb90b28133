// Package rtk mirrors the status of an RTK GPS base station for display.
package rtk

import (
	"github.com/autopeer-io/groundlink/internal/pkg/util/signal"
)

// Fact names, as shown to the presentation layer.
const (
	ConnectedFactName       = "connected"
	CurrentDurationFactName = "currentDuration"
	CurrentAccuracyFactName = "currentAccuracy"
	ValidFactName           = "valid"
	ActiveFactName          = "active"
	NumSatellitesFactName   = "numSatellites"
)

// Fact is one value of the group. Set is false until an event wrote it.
type Fact[T any] struct {
	Value T    `json:"value"`
	Set   bool `json:"set"`
}

func (f *Fact[T]) set(v T) {
	f.Value = v
	f.Set = true
}

// Status is an immutable copy of the group.
type Status struct {
	// Connected is true while a base station is attached.
	Connected Fact[bool] `json:"connected"`
	// CurrentDuration is the survey-in time in seconds.
	CurrentDuration Fact[float64] `json:"currentDuration"`
	// CurrentAccuracy is the survey-in accuracy in millimeters.
	CurrentAccuracy Fact[float64] `json:"currentAccuracy"`
	Valid           Fact[bool]    `json:"valid"`
	Active          Fact[bool]    `json:"active"`
	NumSatellites   Fact[int]     `json:"numSatellites"`
}

// Values returns the set facts keyed by fact name.
func (s Status) Values() map[string]any {
	out := make(map[string]any, 6)
	add := func(name string, set bool, v any) {
		if set {
			out[name] = v
		}
	}
	add(ConnectedFactName, s.Connected.Set, s.Connected.Value)
	add(CurrentDurationFactName, s.CurrentDuration.Set, s.CurrentDuration.Value)
	add(CurrentAccuracyFactName, s.CurrentAccuracy.Set, s.CurrentAccuracy.Value)
	add(ValidFactName, s.Valid.Set, s.Valid.Value)
	add(ActiveFactName, s.Active.Set, s.Active.Value)
	add(NumSatellitesFactName, s.NumSatellites.Set, s.NumSatellites.Value)
	return out
}

// FactGroup holds the latest base station status. Each event overwrites
// only its own fields. It is not safe for concurrent use.
type FactGroup struct {
	status  Status
	changed signal.Signal[Status]
}

func NewFactGroup() *FactGroup {
	return &FactGroup{}
}

// Connect marks the base station as attached.
func (g *FactGroup) Connect() {
	g.status.Connected.set(true)
	g.changed.Emit(g.status)
}

// Disconnect clears every fact and marks the base station as detached.
func (g *FactGroup) Disconnect() {
	g.status = Status{}
	g.status.Connected.set(false)
	g.changed.Emit(g.status)
}

// SurveyInStatus records survey-in progress.
func (g *FactGroup) SurveyInStatus(duration, accuracyMM float64, valid, active bool) {
	g.status.CurrentDuration.set(duration)
	g.status.CurrentAccuracy.set(accuracyMM)
	g.status.Valid.set(valid)
	g.status.Active.set(active)
	g.changed.Emit(g.status)
}

// NumSatellites records the number of satellites the base station sees.
func (g *FactGroup) NumSatellites(n int) {
	g.status.NumSatellites.set(n)
	g.changed.Emit(g.status)
}

// Snapshot returns the current status.
func (g *FactGroup) Snapshot() Status {
	return g.status
}

// OnChanged subscribes fn to every update.
func (g *FactGroup) OnChanged(fn func(Status)) (disconnect func()) {
	return g.changed.Connect(fn)
}
