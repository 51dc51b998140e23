package sched

import "fmt"

// Policy selects how the table scan picks a candidate.
type Policy int

const (
	// PolicyFirstMatch stops at the first eligible task whose priority is
	// at least the candidate's. Which task wins depends on table order.
	PolicyFirstMatch Policy = iota
	// PolicyHighest scans the whole table and ends on the highest priority
	// eligible task; among equals the later table entry wins.
	PolicyHighest
)

func (p Policy) String() string {
	switch p {
	case PolicyFirstMatch:
		return "first-match"
	case PolicyHighest:
		return "highest"
	default:
		return "unknown"
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "first-match", "first":
		return PolicyFirstMatch, nil
	case "highest", "max":
		return PolicyHighest, nil
	default:
		return PolicyFirstMatch, fmt.Errorf("unknown policy %q", s)
	}
}
