package classify

import (
	"sort"
	"time"

	"github.com/skors/reminder-engine/internal/domains"
)

// Aggregate groups the reminders generated by a cycle's items into one bundle
// per recipient. Issue and pull-request lists are sorted independently,
// newest updatedAt first; items without a valid timestamp sort last.
func Aggregate(items []domains.TrackedItem, thresholds Thresholds, now time.Time) map[string]*domains.ReminderBundle {
	bundles := make(map[string]*domains.ReminderBundle)

	for _, item := range items {
		for _, target := range Targets(item, thresholds, now) {
			bundle := bundles[target.Recipient]
			if bundle == nil {
				bundle = &domains.ReminderBundle{GitHubUser: target.Recipient}
				bundles[target.Recipient] = bundle
			}

			reminder := domains.Reminder{Item: item, Reason: target.Reason}
			if item.Kind == domains.KindPullRequest {
				bundle.PullRequests = append(bundle.PullRequests, reminder)
			} else {
				bundle.Issues = append(bundle.Issues, reminder)
			}
		}
	}

	for _, bundle := range bundles {
		sortNewestFirst(bundle.Issues)
		sortNewestFirst(bundle.PullRequests)
	}
	return bundles
}

func sortNewestFirst(reminders []domains.Reminder) {
	sort.SliceStable(reminders, func(i, j int) bool {
		a, b := reminders[i].Item, reminders[j].Item
		if a.UpdatedAtValid != b.UpdatedAtValid {
			return a.UpdatedAtValid
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
}
