package mailer_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"crewdeck.app/herald/internal/mailer"
	"crewdeck.app/herald/internal/model"
)

func pendingEmail(eventType model.EventType, subject string, body map[string]any) *model.PendingEmail {
	raw, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())
	return &model.PendingEmail{
		ID:        1,
		EventID:   10,
		UserID:    "user-1",
		EventType: eventType,
		Subject:   subject,
		BodyData:  raw,
	}
}

var _ = Describe("Render", func() {
	It("renders a document upload email", func() {
		email := pendingEmail(model.EventTypeDocumentUploaded, "New document in Harborview", map[string]any{
			"uploader_name": "Dana",
			"file_name":     "lease.pdf",
			"project_name":  "Harborview",
		})

		htmlBody, textBody, err := mailer.Render(email)
		Expect(err).NotTo(HaveOccurred())
		Expect(htmlBody).To(ContainSubstring("Dana uploaded lease.pdf to Harborview."))
		Expect(textBody).To(ContainSubstring("New document in Harborview"))
	})

	It("falls back to placeholders for missing fields", func() {
		email := pendingEmail(model.EventTypeDocumentUploaded, "New document", map[string]any{})

		htmlBody, _, err := mailer.Render(email)
		Expect(err).NotTo(HaveOccurred())
		Expect(htmlBody).To(ContainSubstring("Someone uploaded a document to your project."))
	})

	It("renders an unread thread email with the count", func() {
		email := pendingEmail(model.EventTypeThreadUnreadStale, "Unread messages", map[string]any{
			"unread_count": 4,
			"project_name": "Harborview",
		})

		_, textBody, err := mailer.Render(email)
		Expect(err).NotTo(HaveOccurred())
		Expect(textBody).To(ContainSubstring("You have 4 unread messages waiting in Harborview."))
	})

	It("renders a resume nudge email", func() {
		email := pendingEmail(model.EventTypeResumeIncompleteNudge, "Finish your resume", map[string]any{
			"resume_kind":  "borrower",
			"project_name": "Harborview",
		})

		_, textBody, err := mailer.Render(email)
		Expect(err).NotTo(HaveOccurred())
		Expect(textBody).To(ContainSubstring("Your borrower resume for Harborview is still incomplete."))
	})

	It("renders an invite accepted email", func() {
		email := pendingEmail(model.EventTypeInviteAccepted, "Invitation accepted", map[string]any{
			"member_name": "Dana",
		})

		_, textBody, err := mailer.Render(email)
		Expect(err).NotTo(HaveOccurred())
		Expect(textBody).To(ContainSubstring("Dana accepted the invitation"))
	})

	It("renders access granted and changed emails", func() {
		granted := pendingEmail(model.EventTypeProjectAccessGranted, "Access granted", map[string]any{"project_name": "Harborview"})
		_, text, err := mailer.Render(granted)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("You now have access to Harborview."))

		changed := pendingEmail(model.EventTypeProjectAccessChanged, "Access updated", map[string]any{"project_name": "Harborview"})
		_, text, err = mailer.Render(changed)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("You can now edit Harborview."))
	})

	It("escapes html in body fields", func() {
		email := pendingEmail(model.EventTypeDocumentUploaded, "New document", map[string]any{
			"file_name": "<script>alert(1)</script>",
		})

		htmlBody, _, err := mailer.Render(email)
		Expect(err).NotTo(HaveOccurred())
		Expect(htmlBody).NotTo(ContainSubstring("<script>"))
	})

	It("returns ErrRender for an unknown event type", func() {
		email := pendingEmail(model.EventTypeMeetingReminder, "Reminder", nil)

		_, _, err := mailer.Render(email)
		Expect(err).To(MatchError(mailer.ErrRender))
	})

	It("returns ErrRender for malformed body data", func() {
		email := &model.PendingEmail{
			ID:        2,
			EventType: model.EventTypeDocumentUploaded,
			BodyData:  json.RawMessage(`{not json`),
		}

		_, _, err := mailer.Render(email)
		Expect(err).To(MatchError(mailer.ErrRender))
	})
})

var _ = Describe("BuildDigest", func() {
	It("groups lines by project in sorted order", func() {
		subject, htmlBody, textBody := mailer.BuildDigest("Dana", []mailer.DigestItem{
			{ProjectName: "Harborview", Line: "Dana uploaded lease.pdf"},
			{ProjectName: "Aspen Ridge", Line: "3 unread chat messages"},
			{ProjectName: "Harborview", Line: "2 unread chat messages"},
		})

		Expect(subject).To(Equal("Your Crewdeck digest"))
		Expect(htmlBody).To(ContainSubstring("Hi Dana"))
		Expect(textBody).To(MatchRegexp(`(?s)Aspen Ridge.*Harborview`))
		Expect(textBody).To(ContainSubstring("  - Dana uploaded lease.pdf"))
		Expect(textBody).To(ContainSubstring("  - 2 unread chat messages"))
	})

	It("groups lines by event type inside a project card", func() {
		_, _, textBody := mailer.BuildDigest("Dana", []mailer.DigestItem{
			{ProjectName: "Harborview", EventType: "document_uploaded", Line: "Dana uploaded lease.pdf"},
			{ProjectName: "Harborview", EventType: "chat_message_sent", Line: "Sam sent a chat message"},
			{ProjectName: "Harborview", EventType: "document_uploaded", Line: "Dana uploaded deed.pdf"},
		})

		// Chat lines come first and the two uploads stay adjacent.
		Expect(textBody).To(MatchRegexp(`(?s)Sam sent a chat message.*Dana uploaded lease\.pdf\n  - Dana uploaded deed\.pdf`))
	})

	It("buckets items without a project under General", func() {
		_, _, textBody := mailer.BuildDigest("", []mailer.DigestItem{
			{ProjectName: "", Line: "Something happened"},
		})

		Expect(textBody).To(ContainSubstring("General"))
		Expect(textBody).To(ContainSubstring("Hi, here's what happened:"))
	})
})

var _ = Describe("DigestLine", func() {
	It("summarizes document uploads", func() {
		email := pendingEmail(model.EventTypeDocumentUploaded, "New document", map[string]any{
			"uploader_name": "Dana",
			"file_name":     "lease.pdf",
		})

		Expect(mailer.DigestLine(email)).To(Equal("Dana uploaded lease.pdf"))
	})

	It("summarizes unread threads", func() {
		email := pendingEmail(model.EventTypeThreadUnreadStale, "Unread messages", map[string]any{
			"unread_count": 3,
		})

		Expect(mailer.DigestLine(email)).To(Equal("3 unread chat messages"))
	})

	It("falls back to the subject", func() {
		email := pendingEmail(model.EventTypeMeetingInvited, "Meeting invite", nil)

		Expect(mailer.DigestLine(email)).To(Equal("Meeting invite"))
	})
})
