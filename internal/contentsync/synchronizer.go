// Package contentsync reconciles the store with the content bundle, one
// domain at a time.
package contentsync

import (
	"context"

	"github.com/example/dojang/internal/content"
)

// Action is what a synchronizer did to its domain.
type Action string

const (
	ActionNone        Action = "none"
	ActionFullReplace Action = "full_replace"
	ActionPatch       Action = "patch"
	ActionSeed        Action = "seed"
	ActionFailed      Action = "failed"
)

// Report describes one domain's synchronization.
type Report struct {
	Domain     content.Domain
	Action     Action
	Reason     string
	Forced     bool
	Expected   int
	Actual     int
	Missing    []string
	Extra      []string
	Inserted   int
	Updated    int
	Orphans    int64
	FileErrors []content.FileError
	Committed  bool
	Err        error
}

// DomainSynchronizer reconciles one content domain. force is set when the
// domain's content hash changed or a full reload was requested.
type DomainSynchronizer interface {
	Domain() content.Domain
	Synchronize(ctx context.Context, force bool) (Report, error)
}

func newReport(d content.Domain, force bool) Report {
	return Report{Domain: d, Action: ActionNone, Forced: force}
}

// trigger is a non-forced reason to reload a domain.
type trigger struct {
	hit    bool
	reason string
}

// reloadReason picks the log reason for a reload, or "" when none applies.
func reloadReason(force bool, checks ...trigger) string {
	if force {
		return "content changed"
	}
	for _, c := range checks {
		if c.hit {
			return c.reason
		}
	}
	return ""
}
