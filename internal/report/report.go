// Package report folds the probe results of one verification run into a
// summary with remediation advice.
package report

import (
	"time"

	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/probe"
)

// Outcome holds both probe results for one endpoint.
type Outcome struct {
	Endpoint   config.Endpoint
	Health     probe.Result
	Functional probe.Result
}

// Level grades a piece of advice.
type Level int

const (
	LevelOK Level = iota
	LevelNote
	LevelAction
)

// Advice is one remediation item. Checks lists what the operator should look at.
type Advice struct {
	Endpoint string
	Level    Level
	Text     string
	Checks   []string
}

// Report is the read-only summary of a verification run.
type Report struct {
	Outcomes   []Outcome
	Primary    string
	StartedAt  time.Time
	FinishedAt time.Time
	Advice     []Advice
}

// Build assembles a report from settled outcomes in declared endpoint order.
func Build(outcomes []Outcome, primary string, startedAt time.Time) *Report {
	r := &Report{
		Outcomes:   outcomes,
		Primary:    primary,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	r.Advice = remediation(r)
	return r
}

// Results returns every probe result: health then functional for each endpoint.
func (r *Report) Results() []probe.Result {
	results := make([]probe.Result, 0, 2*len(r.Outcomes))
	for _, o := range r.Outcomes {
		results = append(results, o.Health, o.Functional)
	}
	return results
}

// Counts returns the number of passed and failed probes.
func (r *Report) Counts() (passed, failed int) {
	for _, res := range r.Results() {
		if res.Success {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// Outcome looks up the outcome for the named endpoint.
func (r *Report) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Endpoint.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Passed reports whether the run succeeds overall: the primary endpoint's
// functional probe passed. Other failures are reported but do not fail the run.
func (r *Report) Passed() bool {
	o, ok := r.Outcome(r.Primary)
	return ok && o.Functional.Success
}

func (r *Report) primaryIsCloud() bool {
	o, ok := r.Outcome(r.Primary)
	return ok && o.Endpoint.Kind == config.KindCloud
}

func remediation(r *Report) []Advice {
	var advice []Advice
	for _, o := range r.Outcomes {
		name := o.Endpoint.Name
		ok := o.Functional.Success

		switch {
		case o.Endpoint.Kind == config.KindCloud && ok:
			advice = append(advice, Advice{
				Endpoint: name,
				Level:    LevelOK,
				Text:     name + " is working: the service is reachable from any network.",
			})
		case o.Endpoint.Kind == config.KindCloud:
			advice = append(advice, Advice{
				Endpoint: name,
				Level:    LevelAction,
				Text:     name + " needs attention. Check:",
				Checks: []string{
					"the function deployment",
					"the upstream API key configuration",
					"the base URL configured in the client application",
				},
			})
		case ok:
			advice = append(advice, Advice{
				Endpoint: name,
				Level:    LevelOK,
				Text:     name + " is working for same-network access.",
			})
		case r.primaryIsCloud():
			advice = append(advice, Advice{
				Endpoint: name,
				Level:    LevelNote,
				Text:     name + " is not responding (this is OK while the cloud instance is the primary target).",
			})
		default:
			advice = append(advice, Advice{
				Endpoint: name,
				Level:    LevelAction,
				Text:     name + " needs attention. Check:",
				Checks: []string{
					"the local server is running",
					"the host and port are reachable from this network",
				},
			})
		}
	}
	return advice
}
