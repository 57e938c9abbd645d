package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skors/reminder-engine/internal/domains"
)

var testThresholds = Thresholds{
	Issue:       14 * 24 * time.Hour,
	PullRequest: 7 * 24 * time.Hour,
}

func staleIssue(now time.Time) domains.TrackedItem {
	return domains.TrackedItem{
		Repository:     "mantis",
		Number:         10,
		Kind:           domains.KindIssue,
		Author:         "alice",
		UpdatedAt:      now.Add(-30 * 24 * time.Hour),
		UpdatedAtValid: true,
	}
}

func stalePR(now time.Time) domains.TrackedItem {
	return domains.TrackedItem{
		Repository:     "mantis",
		Number:         30,
		Kind:           domains.KindPullRequest,
		Author:         "alice",
		UpdatedAt:      now.Add(-10 * 24 * time.Hour),
		UpdatedAtValid: true,
	}
}

func TestIsStale(t *testing.T) {
	t.Parallel()

	now := time.Now()

	cases := []struct {
		name string
		item domains.TrackedItem
		want bool
	}{
		{
			name: "older than threshold",
			item: domains.TrackedItem{UpdatedAt: now.Add(-15 * 24 * time.Hour), UpdatedAtValid: true},
			want: true,
		},
		{
			name: "newer than threshold",
			item: domains.TrackedItem{UpdatedAt: now.Add(-13 * 24 * time.Hour), UpdatedAtValid: true},
			want: false,
		},
		{
			name: "missing timestamp counts as stale",
			item: domains.TrackedItem{},
			want: true,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, IsStale(tc.item, testThresholds.Issue, now))
		})
	}
}

func TestTargets_Issues(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("assignees each get assigned reason", func(t *testing.T) {
		t.Parallel()

		issue := staleIssue(now)
		issue.Assignees = []string{"bob", "carol"}

		targets := Targets(issue, testThresholds, now)

		require.ElementsMatch(t, []Target{
			{Recipient: "bob", Reason: domains.ReasonAssigned},
			{Recipient: "carol", Reason: domains.ReasonAssigned},
		}, targets)
	})

	t.Run("unassigned issue reminds only the author", func(t *testing.T) {
		t.Parallel()

		targets := Targets(staleIssue(now), testThresholds, now)

		require.Equal(t, []Target{{Recipient: "alice", Reason: domains.ReasonCreatedUnassigned}}, targets)
	})

	t.Run("fresh issue generates nothing", func(t *testing.T) {
		t.Parallel()

		issue := staleIssue(now)
		issue.UpdatedAt = now.Add(-time.Hour)

		require.Empty(t, Targets(issue, testThresholds, now))
	})
}

func TestTargets_PullRequestLadder(t *testing.T) {
	t.Parallel()

	now := time.Now()

	cases := []struct {
		name   string
		mutate func(*domains.TrackedItem)
		want   []Target
	}{
		{
			name:   "draft beats review state",
			mutate: func(pr *domains.TrackedItem) { pr.IsDraft = true; pr.ReviewState = domains.ReviewApproved },
			want:   []Target{{Recipient: "alice", Reason: domains.ReasonDraftOwner}},
		},
		{
			name:   "approved goes to the author",
			mutate: func(pr *domains.TrackedItem) { pr.ReviewState = domains.ReviewApproved },
			want:   []Target{{Recipient: "alice", Reason: domains.ReasonApprovedOwner}},
		},
		{
			name:   "changes requested goes to the author",
			mutate: func(pr *domains.TrackedItem) { pr.ReviewState = domains.ReviewChangesRequested },
			want:   []Target{{Recipient: "alice", Reason: domains.ReasonChangesRequestedOwner}},
		},
		{
			name: "review required with reviewers reminds every reviewer",
			mutate: func(pr *domains.TrackedItem) {
				pr.ReviewState = domains.ReviewRequired
				pr.Reviewers = []string{"bob", "carol"}
			},
			want: []Target{
				{Recipient: "bob", Reason: domains.ReasonRequestedReviewer},
				{Recipient: "carol", Reason: domains.ReasonRequestedReviewer},
			},
		},
		{
			name:   "no decision and no reviewers falls back to the author",
			mutate: func(pr *domains.TrackedItem) { pr.ReviewState = domains.ReviewNone },
			want:   []Target{{Recipient: "alice", Reason: domains.ReasonAwaitingReviewOwner}},
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			pr := stalePR(now)
			tc.mutate(&pr)

			targets := Targets(pr, testThresholds, now)

			require.ElementsMatch(t, tc.want, targets)

			// The ladder is exclusive: a single reason per recipient.
			seen := map[string]bool{}
			for _, target := range targets {
				require.False(t, seen[target.Recipient])
				seen[target.Recipient] = true
			}
		})
	}
}

func TestAggregate_SortsAndPartitions(t *testing.T) {
	t.Parallel()

	now := time.Now()

	older := staleIssue(now)
	older.Number = 11
	older.UpdatedAt = now.Add(-60 * 24 * time.Hour)

	newer := staleIssue(now)
	newer.Number = 12
	newer.UpdatedAt = now.Add(-20 * 24 * time.Hour)

	pr := stalePR(now)
	pr.IsDraft = true

	bundles := Aggregate([]domains.TrackedItem{older, pr, newer}, testThresholds, now)

	require.Len(t, bundles, 1)
	bundle := bundles["alice"]
	require.NotNil(t, bundle)

	require.Len(t, bundle.Issues, 2)
	require.Equal(t, 12, bundle.Issues[0].Item.Number)
	require.Equal(t, 11, bundle.Issues[1].Item.Number)

	require.Len(t, bundle.PullRequests, 1)
	require.Equal(t, domains.ReasonDraftOwner, bundle.PullRequests[0].Reason)
}

func TestAggregate_MultipleRecipientsFromOneItem(t *testing.T) {
	t.Parallel()

	now := time.Now()

	pr := stalePR(now)
	pr.ReviewState = domains.ReviewRequired
	pr.Reviewers = []string{"bob", "carol"}

	bundles := Aggregate([]domains.TrackedItem{pr}, testThresholds, now)

	require.Len(t, bundles, 2)
	require.Len(t, bundles["bob"].PullRequests, 1)
	require.Len(t, bundles["carol"].PullRequests, 1)
	require.Nil(t, bundles["alice"])
}
