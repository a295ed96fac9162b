package alerts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// enqueue marshals the payload and hands it to asynq. A nil client means
// alerts were never initialized (tests, tooling); the event is dropped.
func enqueue(taskType string, payload interface{}, queue string) error {
	if client == nil {
		return nil
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(taskType, b)
	_, err := client.Enqueue(task, asynq.Queue(queue))
	return err
}

// EnqueueWelcome schedules the welcome email for a new guild member
func EnqueueWelcome(userID, email, name, role string) error {
	base := os.Getenv("APP_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	base = strings.TrimRight(base, "/")

	greeting := "Your adventurer's ledger is ready. Browse the board and take your first quest."
	if role == "npc" {
		greeting = "Your NPC account is ready. Top up your wallet and post your first quest."
	}
	subject := fmt.Sprintf("Welcome to QuestHub, %s!", name)
	body := fmt.Sprintf("Hi %s, thanks for joining QuestHub.\n\n%s\n\nOpen QuestHub: %s", name, greeting, base)

	env := EmailEnvelope{To: email, Subject: subject, Body: body}
	payload := WelcomeEmailPayload{UserID: userID, Name: name, Email: email, Role: role, Envelope: env, SentAt: time.Now()}
	return enqueue(TaskWelcomeEmail, payload, "emails")
}

// EnqueuePasswordReset schedules a password reset notification
func EnqueuePasswordReset(userID, email, resetURL, name string) error {
	expiry := os.Getenv("PASSWORD_RESET_EXP_MINUTES")
	if expiry == "" {
		expiry = "30"
	}
	subject := "Password reset instructions"
	body := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your QuestHub password.\n\nTo proceed, open the link below:\n%s\n\nThis link expires in %s minutes. If you did not request this, no action is required.\n\n— QuestHub Team", name, resetURL, expiry)

	env := EmailEnvelope{To: email, Subject: subject, Body: body}
	payload := PasswordResetPayload{UserID: userID, Email: email, ResetURL: resetURL, Envelope: env, Requested: time.Now()}
	return enqueue(TaskPasswordReset, payload, "emails")
}

// EnqueueQuestAccepted tells the NPC an adventurer took their quest
func EnqueueQuestAccepted(npcID, questID, title string) error {
	recordNotification(npcID, "quest_accepted", "Quest accepted",
		fmt.Sprintf("An adventurer accepted %q.", title), questID)
	payload := QuestEventPayload{
		UserID: npcID, QuestID: questID, Title: title,
		Subject: "Your quest has been accepted",
		Body:    fmt.Sprintf("An adventurer accepted %q. The reward stays in escrow until you approve the completion report.", title),
		SentAt:  time.Now(),
	}
	return enqueue(TaskQuestAccepted, payload, "emails")
}

// EnqueueQuestCompleted tells the NPC a completion report was filed
func EnqueueQuestCompleted(npcID, questID, title, report string) error {
	recordNotification(npcID, "quest_completed", "Completion report filed",
		fmt.Sprintf("A report was filed for %q. Review and pay, or raise a conflict.", title), questID)
	payload := QuestEventPayload{
		UserID: npcID, QuestID: questID, Title: title, Report: report,
		Subject: "Completion report filed",
		Body:    fmt.Sprintf("A completion report was filed for %q. Review it and release the reward, or raise a conflict if the work falls short.", title),
		SentAt:  time.Now(),
	}
	return enqueue(TaskQuestCompleted, payload, "emails")
}

// EnqueueQuestPaid tells the adventurer their reward was released
func EnqueueQuestPaid(adventurerID, questID, title string, amount int64) error {
	recordNotification(adventurerID, "quest_paid", "Reward released",
		fmt.Sprintf("%d gold released for %q.", amount, title), questID)
	payload := QuestEventPayload{
		UserID: adventurerID, QuestID: questID, Title: title, Amount: amount,
		Subject: "Quest reward released",
		Body:    fmt.Sprintf("%d gold has been released to your wallet for %q.", amount, title),
		SentAt:  time.Now(),
	}
	return enqueue(TaskQuestPaid, payload, "emails")
}

// EnqueueConflictOpened tells the other party a dispute was raised
func EnqueueConflictOpened(userID, conflictID, questID, title string) error {
	recordNotification(userID, "conflict_opened", "Conflict raised",
		fmt.Sprintf("A conflict was raised on %q. The Guild Master will adjudicate.", title), conflictID)
	payload := ConflictEventPayload{
		UserID: userID, ConflictID: conflictID, QuestID: questID, Title: title,
		Subject: "A conflict was raised on your quest",
		Body:    fmt.Sprintf("A conflict was raised on %q. All gold stays locked until the Guild Master rules.", title),
		SentAt:  time.Now(),
	}
	return enqueue(TaskConflictOpened, payload, "emails")
}

// EnqueueConflictResolved tells a party how the Guild Master ruled
func EnqueueConflictResolved(userID, conflictID, questID, resolution string) error {
	recordNotification(userID, "conflict_resolved", "Conflict resolved",
		fmt.Sprintf("The Guild Master ruled %s.", resolution), conflictID)
	payload := ConflictEventPayload{
		UserID: userID, ConflictID: conflictID, QuestID: questID, Resolution: resolution,
		Subject: "Conflict resolved",
		Body:    fmt.Sprintf("The Guild Master has ruled %s on your conflict. Check your wallet and quest record for the outcome.", resolution),
		SentAt:  time.Now(),
	}
	return enqueue(TaskConflictResolved, payload, "emails")
}

// EnqueueDeadlineMissed nudges the NPC that their quest ran past deadline
func EnqueueDeadlineMissed(npcID, questID, title string) error {
	recordNotification(npcID, "deadline_missed", "Deadline passed",
		fmt.Sprintf("%q ran past its deadline. You may raise a DEADLINE_MISSED conflict.", title), questID)
	payload := QuestEventPayload{
		UserID: npcID, QuestID: questID, Title: title,
		Subject: "Quest deadline passed",
		Body:    fmt.Sprintf("%q ran past its deadline without a completion report. You may raise a DEADLINE_MISSED conflict to recover the escrow.", title),
		SentAt:  time.Now(),
	}
	return enqueue(TaskDeadlineMissed, payload, "emails")
}

// EnqueueGuildMasterAlert puts a new conflict on the adjudication queue
func EnqueueGuildMasterAlert(conflictID, questID, title string) error {
	payload := ConflictEventPayload{
		ConflictID: conflictID, QuestID: questID, Title: title,
		Subject: "New conflict awaiting adjudication",
		Body:    fmt.Sprintf("Conflict %s on quest %q is waiting for a ruling.", conflictID, title),
		SentAt:  time.Now(),
	}
	return enqueue(TaskGuildMasterAlert, payload, "alerts")
}
