// Package notification delivers fire-and-forget user notifications.
// Delivery failures are logged and swallowed; a notification must never
// fail or roll back the operation that triggered it.
package notification

import (
	"encoding/json"
	"log"

	ws "backend/internal/websocket"
)

// Notifier is the outbound side-channel the order engine talks to.
type Notifier interface {
	Notify(userID, message string)
}

// HubNotifier pushes notifications to connected websocket clients (the
// SPA renders them as toasts) and mirrors them to the server log.
type HubNotifier struct {
	hub *ws.Hub
}

func NewHubNotifier(hub *ws.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Notify(userID, message string) {
	payload, err := json.Marshal(map[string]string{
		"event":   "notification",
		"user_id": userID,
		"message": message,
	})
	if err != nil {
		log.Printf("[NOTIFY] marshal failed for user %s: %v", userID, err)
		return
	}

	// Non-blocking send: if the hub is saturated the notification is
	// dropped rather than stalling the caller.
	select {
	case n.hub.Broadcast <- payload:
	default:
		log.Printf("[NOTIFY] hub busy, dropped notification for user %s", userID)
	}

	log.Printf("[NOTIFY] user %s: %s", userID, message)
}

// LogNotifier only writes to the server log. Used when no hub is wired,
// e.g. in tests.
type LogNotifier struct{}

func (LogNotifier) Notify(userID, message string) {
	log.Printf("[NOTIFY] user %s: %s", userID, message)
}
