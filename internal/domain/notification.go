package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies an in-app notification.
type NotificationType string

const (
	NotifyLowBalance   NotificationType = "LOW_BALANCE"
	NotifyDailySummary NotificationType = "DAILY_SUMMARY"
	NotifyInvite       NotificationType = "INVITE"
	NotifySystem       NotificationType = "SYSTEM"
)

// NotificationPriority orders notifications in the inbox.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "LOW"
	PriorityNormal NotificationPriority = "NORMAL"
	PriorityHigh   NotificationPriority = "HIGH"
	PriorityUrgent NotificationPriority = "URGENT"
)

// Notification is an in-app message for one user. Delivery channels beyond
// the inbox (push, email) live outside this system.
type Notification struct {
	ID        uuid.UUID            `json:"id" db:"id"`
	UserID    uuid.UUID            `json:"user_id" db:"user_id"`
	Type      NotificationType     `json:"type" db:"type"`
	Priority  NotificationPriority `json:"priority" db:"priority"`
	Title     string               `json:"title" db:"title"`
	Message   string               `json:"message" db:"message"`
	KioskID   *uuid.UUID           `json:"kiosk_id,omitempty" db:"kiosk_id"`
	ActionURL string               `json:"action_url" db:"action_url"`
	IsRead    bool                 `json:"is_read" db:"is_read"`
	CreatedAt time.Time            `json:"created_at" db:"created_at"`
}
