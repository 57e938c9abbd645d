package delivery

import (
	"fmt"
	"strings"
	"time"

	"github.com/skors/reminder-engine/internal/chat"
	"github.com/skors/reminder-engine/internal/domains"
	"github.com/skors/reminder-engine/internal/identity"
)

const (
	maxItemsPerSection = 5
	maxTitleRunes      = 50
	maxBodyRunes       = 1900
)

// directMessage renders the private reminder for one recipient.
func directMessage(bundle *domains.ReminderBundle, id identity.Identity, issueAge, prAge time.Duration) string {
	var b strings.Builder

	name := ""
	if id.DisplayName != "" {
		name = fmt.Sprintf(" (%s)", id.DisplayName)
	}
	fmt.Fprintf(&b, "Hello %s!%s You have reminders from GitHub (@%s)\n", id.Handle, name, bundle.GitHubUser)

	writeSection(&b, "Stale issues", bundle.Issues)
	writeSection(&b, "Stale pull requests", bundle.PullRequests)

	fmt.Fprintf(&b, "\nIssues count as stale after %d days of inactivity, pull requests after %d days.\n",
		int(issueAge.Hours()/24), int(prAge.Hours()/24))
	b.WriteString("Reply to this message with a status update and I'll post it to GitHub for you.")

	return truncateBody(b.String())
}

// channelMessage renders the shared-channel copy. The recipient is mentioned
// only when the direct send did not reach them; a mention after a successful
// direct message would notify them twice.
func channelMessage(bundle *domains.ReminderBundle, id identity.Identity, mapped, mention bool) string {
	var b strings.Builder

	name := ""
	if id.DisplayName != "" {
		name = fmt.Sprintf(" (%s)", id.DisplayName)
	}

	switch {
	case !mapped:
		fmt.Fprintf(&b, "GitHub user @%s (no chat mapping)\n", bundle.GitHubUser)
	case mention:
		fmt.Fprintf(&b, "%s%s (GitHub: @%s)\n", chat.Mention(id.Handle), name, bundle.GitHubUser)
	default:
		fmt.Fprintf(&b, "%s%s (GitHub: @%s)\n", id.Handle, name, bundle.GitHubUser)
	}

	writeSection(&b, "Stale issues", bundle.Issues)
	writeSection(&b, "Stale pull requests", bundle.PullRequests)

	return truncateBody(b.String())
}

func writeSection(b *strings.Builder, heading string, reminders []domains.Reminder) {
	if len(reminders) == 0 {
		return
	}

	fmt.Fprintf(b, "\n%s (%d):\n", heading, len(reminders))
	for i, reminder := range reminders {
		if i == maxItemsPerSection {
			fmt.Fprintf(b, "- ... and %d more\n", len(reminders)-maxItemsPerSection)
			break
		}
		item := reminder.Item
		fmt.Fprintf(b, "- %s#%d %s (%s)\n  %s\n",
			item.Repository, item.Number, truncateTitle(item.Title), item.URL, reminder.Reason.Text())
	}
}

func truncateTitle(title string) string {
	if title == "" {
		return "Untitled"
	}
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return string(runes[:maxTitleRunes-3]) + "..."
}

func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= maxBodyRunes {
		return body
	}
	return string(runes[:maxBodyRunes-3]) + "..."
}
