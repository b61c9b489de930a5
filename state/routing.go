package state

import (
	"github.com/phantomlabs/beastmode/graph"
)

// RouteIfValidated returns a predicate that continues to next while the run
// is still on the happy path and terminates otherwise. Rejected and failed
// runs route to END with their status intact.
func RouteIfValidated(next string) graph.Predicate[AgentState] {
	return func(s AgentState) string {
		if s.Status == StatusValidated {
			return next
		}
		return graph.END
	}
}

// RouteByStatus returns a predicate mapping each status to a successor, with
// a fallback for statuses not listed.
func RouteByStatus(routes map[Status]string, fallback string) graph.Predicate[AgentState] {
	return func(s AgentState) string {
		if next, ok := routes[s.Status]; ok {
			return next
		}
		return fallback
	}
}
