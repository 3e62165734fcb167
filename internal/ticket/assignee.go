package ticket

import (
	"context"
	"strings"

	internalerrors "github.com/rcourtman/scanticket/internal/errors"
)

// UserLookup is the tracker call behind assignee resolution.
type UserLookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

// LookupResult is the outcome of resolving an assignee candidate.
type LookupResult int

const (
	// Skipped means no candidate was configured and no lookup was made.
	Skipped LookupResult = iota
	Found
	NotFound
	LookupFailed
)

func (r LookupResult) String() string {
	switch r {
	case Skipped:
		return "skipped"
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case LookupFailed:
		return "lookup_failed"
	default:
		return "unknown"
	}
}

// Resolution carries the lookup outcome. Err is set only for LookupFailed.
type Resolution struct {
	Result    LookupResult
	Candidate string
	Err       error
}

// Assignee returns the user to assign, or "" when the ticket stays unassigned.
func (r Resolution) Assignee() string {
	if r.Result == Found {
		return r.Candidate
	}
	return ""
}

type Resolver struct {
	lookup UserLookup
}

func NewResolver(lookup UserLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve checks that candidate exists in the tracker. It never fails the caller:
// every outcome other than Found means "create the ticket unassigned".
func (r *Resolver) Resolve(ctx context.Context, candidate string) Resolution {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || r == nil || r.lookup == nil {
		return Resolution{Result: Skipped, Candidate: candidate}
	}

	exists, err := r.lookup.UserExists(ctx, candidate)
	switch {
	case err != nil:
		if !internalerrors.IsKind(err, internalerrors.KindLookup) {
			err = internalerrors.New(internalerrors.KindLookup, "lookup_user", err)
		}
		return Resolution{Result: LookupFailed, Candidate: candidate, Err: err}
	case exists:
		return Resolution{Result: Found, Candidate: candidate}
	default:
		return Resolution{Result: NotFound, Candidate: candidate}
	}
}
