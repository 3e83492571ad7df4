package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"crewdeck.app/herald/internal/model"
)

// ErrRender marks an email whose body data cannot be rendered. Such rows
// are failed without retry; resending would not fix the data.
var ErrRender = errors.New("render failed")

// Render builds the html and text bodies for an immediate email from its
// stored body_data.
func Render(email *model.PendingEmail) (htmlBody, textBody string, err error) {
	var data map[string]any
	if len(email.BodyData) > 0 {
		if err := json.Unmarshal(email.BodyData, &data); err != nil {
			return "", "", fmt.Errorf("%w: bad body_data for email %d: %v", ErrRender, email.ID, err)
		}
	}

	switch email.EventType {
	case model.EventTypeDocumentUploaded:
		return renderLines(email.Subject,
			fmt.Sprintf("%s uploaded %s to %s.",
				stringField(data, "uploader_name", "Someone"),
				stringField(data, "file_name", "a document"),
				stringField(data, "project_name", "your project")))

	case model.EventTypeThreadUnreadStale:
		return renderLines(email.Subject,
			fmt.Sprintf("You have %s unread messages waiting in %s.",
				numberField(data, "unread_count"),
				stringField(data, "project_name", "your project")))

	case model.EventTypeResumeIncompleteNudge:
		return renderLines(email.Subject,
			fmt.Sprintf("Your %s resume for %s is still incomplete. Pick up where you left off.",
				stringField(data, "resume_kind", "project"),
				stringField(data, "project_name", "your project")))

	case model.EventTypeInviteAccepted:
		return renderLines(email.Subject,
			fmt.Sprintf("%s accepted the invitation and joined your organization.",
				stringField(data, "member_name", "A new member")))

	case model.EventTypeProjectAccessGranted:
		return renderLines(email.Subject,
			fmt.Sprintf("You now have access to %s.",
				stringField(data, "project_name", "a project")))

	case model.EventTypeProjectAccessChanged:
		return renderLines(email.Subject,
			fmt.Sprintf("You can now edit %s.",
				stringField(data, "project_name", "a project")))

	default:
		return "", "", fmt.Errorf("%w: no template for event type %s", ErrRender, email.EventType)
	}
}

// DigestItem is one line of a digest email.
type DigestItem struct {
	ProjectName string
	EventType   string
	Line        string
}

// BuildDigest renders one digest email: a card per project, lines grouped
// by event type inside each card.
func BuildDigest(userName string, items []DigestItem) (subject, htmlBody, textBody string) {
	subject = "Your Crewdeck digest"

	byProject := make(map[string]map[string][]string)
	for _, item := range items {
		name := item.ProjectName
		if name == "" {
			name = "General"
		}
		if byProject[name] == nil {
			byProject[name] = make(map[string][]string)
		}
		byProject[name][item.EventType] = append(byProject[name][item.EventType], item.Line)
	}
	projects := make([]string, 0, len(byProject))
	for name := range byProject {
		projects = append(projects, name)
	}
	sort.Strings(projects)

	greeting := "Hi"
	if userName != "" {
		greeting = "Hi " + userName
	}

	var hb, tb strings.Builder
	hb.WriteString(fmt.Sprintf("<p>%s, here's what happened:</p>", html.EscapeString(greeting)))
	tb.WriteString(greeting + ", here's what happened:\n\n")

	for _, name := range projects {
		hb.WriteString(fmt.Sprintf("<h3>%s</h3><ul>", html.EscapeString(name)))
		tb.WriteString(name + "\n")

		eventTypes := make([]string, 0, len(byProject[name]))
		for eventType := range byProject[name] {
			eventTypes = append(eventTypes, eventType)
		}
		sort.Strings(eventTypes)

		for _, eventType := range eventTypes {
			for _, line := range byProject[name][eventType] {
				hb.WriteString("<li>" + html.EscapeString(line) + "</li>")
				tb.WriteString("  - " + line + "\n")
			}
		}
		hb.WriteString("</ul>")
		tb.WriteString("\n")
	}
	return subject, hb.String(), tb.String()
}

// DigestLine summarizes one pending aggregated email for the hourly digest.
func DigestLine(email *model.PendingEmail) string {
	var data map[string]any
	if len(email.BodyData) > 0 {
		_ = json.Unmarshal(email.BodyData, &data)
	}

	switch email.EventType {
	case model.EventTypeDocumentUploaded:
		return fmt.Sprintf("%s uploaded %s",
			stringField(data, "uploader_name", "Someone"),
			stringField(data, "file_name", "a document"))
	case model.EventTypeThreadUnreadStale:
		return fmt.Sprintf("%s unread chat messages", numberField(data, "unread_count"))
	default:
		return email.Subject
	}
}

func renderLines(subject, line string) (string, string, error) {
	htmlBody := fmt.Sprintf("<h2>%s</h2><p>%s</p>",
		html.EscapeString(subject), html.EscapeString(line))
	textBody := subject + "\n\n" + line + "\n"
	return htmlBody, textBody, nil
}

func stringField(data map[string]any, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func numberField(data map[string]any, key string) string {
	if v, ok := data[key].(float64); ok {
		return fmt.Sprintf("%d", int(v))
	}
	return "some"
}
