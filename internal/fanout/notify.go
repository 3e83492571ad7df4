package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"crewdeck.app/herald/common/id"
	"crewdeck.app/herald/internal/model"
)

func (h *Handlers) insertNotification(ctx context.Context, event *model.DomainEvent, userID, title, body, link string, payload model.NotificationPayload) error {
	n := &model.Notification{
		ID:      id.New(),
		UserID:  userID,
		EventID: event.ID,
		Title:   title,
		Body:    body,
		LinkURL: link,
		Payload: encodeNotificationPayload(payload),
	}
	if err := h.notifications.Insert(ctx, n); err != nil {
		return fmt.Errorf("insert notification for user %s: %w", userID, err)
	}
	return nil
}

func (h *Handlers) queueEmail(ctx context.Context, event *model.DomainEvent, userID string, delivery model.DeliveryType, subject string, projectID, projectName *string, bodyData any) (bool, error) {
	data, err := json.Marshal(bodyData)
	if err != nil {
		return false, fmt.Errorf("marshal email body data: %w", err)
	}
	return h.emails.Enqueue(ctx, &model.PendingEmail{
		ID:           id.New(),
		EventID:      event.ID,
		UserID:       userID,
		EventType:    event.EventType,
		DeliveryType: delivery,
		ProjectID:    projectID,
		ProjectName:  projectName,
		Subject:      subject,
		BodyData:     data,
	})
}
