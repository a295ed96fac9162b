package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail     = "email:welcome"
	TaskPasswordReset    = "email:password_reset"
	TaskQuestAccepted    = "email:quest_accepted"
	TaskQuestCompleted   = "email:quest_completed"
	TaskQuestPaid        = "email:quest_paid"
	TaskConflictOpened   = "email:conflict_opened"
	TaskConflictResolved = "email:conflict_resolved"
	TaskDeadlineMissed   = "email:deadline_missed"
	TaskGuildMasterAlert = "email:guildmaster_alert"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Role     string        `json:"role"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Password reset payload
type PasswordResetPayload struct {
	UserID    string        `json:"user_id"`
	Email     string        `json:"email"`
	ResetURL  string        `json:"reset_url"`
	Envelope  EmailEnvelope `json:"envelope"`
	Requested time.Time     `json:"requested"`
}

// QuestEventPayload covers the quest lifecycle notifications. The recipient
// email is resolved when the task is processed, not when it is enqueued, so
// a member changing their address still gets the mail.
type QuestEventPayload struct {
	UserID  string    `json:"user_id"`
	QuestID string    `json:"quest_id"`
	Title   string    `json:"title"`
	Report  string    `json:"report,omitempty"`
	Amount  int64     `json:"amount,omitempty"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// ConflictEventPayload covers dispute notifications.
type ConflictEventPayload struct {
	UserID     string    `json:"user_id,omitempty"`
	ConflictID string    `json:"conflict_id"`
	QuestID    string    `json:"quest_id"`
	Title      string    `json:"title,omitempty"`
	Resolution string    `json:"resolution,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
}
