// Package classify decides which recipients are reminded about which stale
// items. It is pure: no I/O, no clocks beyond the passed-in now.
package classify

import (
	"time"

	"github.com/skors/reminder-engine/internal/domains"
)

// Thresholds holds the per-kind staleness ages.
type Thresholds struct {
	Issue       time.Duration
	PullRequest time.Duration
}

func (t Thresholds) For(kind domains.ItemKind) time.Duration {
	if kind == domains.KindPullRequest {
		return t.PullRequest
	}
	return t.Issue
}

// Target pairs a recipient with the reason they are reminded about an item.
type Target struct {
	Recipient string
	Reason    domains.ReminderReason
}

// IsStale reports whether an item's last update is older than the threshold.
// Items with a missing or unparseable timestamp count as stale; a reminder
// for broken data beats silently skipping it.
func IsStale(item domains.TrackedItem, threshold time.Duration, now time.Time) bool {
	if !item.UpdatedAtValid {
		return true
	}
	return now.Sub(item.UpdatedAt) > threshold
}

// Targets returns every (recipient, reason) pair a single item generates.
// A fresh item generates none; a stale item never generates two reasons for
// the same recipient.
func Targets(item domains.TrackedItem, thresholds Thresholds, now time.Time) []Target {
	if !IsStale(item, thresholds.For(item.Kind), now) {
		return nil
	}

	if item.Kind == domains.KindPullRequest {
		return pullRequestTargets(item)
	}
	return issueTargets(item)
}

func issueTargets(item domains.TrackedItem) []Target {
	if len(item.Assignees) > 0 {
		targets := make([]Target, 0, len(item.Assignees))
		for _, assignee := range item.Assignees {
			targets = append(targets, Target{Recipient: assignee, Reason: domains.ReasonAssigned})
		}
		return targets
	}

	if item.Author == "" {
		return nil
	}
	return []Target{{Recipient: item.Author, Reason: domains.ReasonCreatedUnassigned}}
}

// pullRequestTargets applies the reason ladder: draft, approved, changes
// requested, then the review-pending split between requested reviewers and
// the author. Exactly one rung fires per pull request.
func pullRequestTargets(item domains.TrackedItem) []Target {
	switch {
	case item.IsDraft:
		return authorTarget(item, domains.ReasonDraftOwner)
	case item.ReviewState == domains.ReviewApproved:
		return authorTarget(item, domains.ReasonApprovedOwner)
	case item.ReviewState == domains.ReviewChangesRequested:
		return authorTarget(item, domains.ReasonChangesRequestedOwner)
	default:
		if len(item.Reviewers) > 0 {
			targets := make([]Target, 0, len(item.Reviewers))
			for _, reviewer := range item.Reviewers {
				targets = append(targets, Target{Recipient: reviewer, Reason: domains.ReasonRequestedReviewer})
			}
			return targets
		}
		return authorTarget(item, domains.ReasonAwaitingReviewOwner)
	}
}

func authorTarget(item domains.TrackedItem, reason domains.ReminderReason) []Target {
	if item.Author == "" {
		return nil
	}
	return []Target{{Recipient: item.Author, Reason: reason}}
}
