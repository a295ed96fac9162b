package alerts

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/questhub/internal/db"
)

var (
	client *asynq.Client
	server *asynq.Server
)

// Init starts the Asynq server and initializes a shared client.
func Init() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		if host := os.Getenv("REDIS_HOST"); host != "" {
			port := os.Getenv("REDIS_PORT")
			if port == "" {
				port = "6379"
			}
			redisAddr = host + ":" + port
		} else {
			// Default to docker-compose service name; localhost for bare runs
			redisAddr = "redis:6379"
			if os.Getenv("RUN_LOCAL") == "true" {
				redisAddr = "127.0.0.1:6379"
			}
		}
	}

	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleWelcomeEmail)
	mux.HandleFunc(TaskPasswordReset, handlePasswordReset)
	mux.HandleFunc(TaskQuestAccepted, handleQuestEvent)
	mux.HandleFunc(TaskQuestCompleted, handleQuestEvent)
	mux.HandleFunc(TaskQuestPaid, handleQuestEvent)
	mux.HandleFunc(TaskDeadlineMissed, handleQuestEvent)
	mux.HandleFunc(TaskConflictOpened, handleConflictEvent)
	mux.HandleFunc(TaskConflictResolved, handleConflictEvent)
	mux.HandleFunc(TaskGuildMasterAlert, handleGuildMasterAlert)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
			"alerts": 5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", redisAddr)
}

// Close releases client and stops server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

// lookupEmail resolves a member's current address at delivery time.
func lookupEmail(userID string) (string, error) {
	var email string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	return email, err
}

func handleWelcomeEmail(_ context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] WelcomeEmail send failed: %v", err)
		return err
	}
	log.Printf("[notify] WelcomeEmail sent -> to=%s user=%s", p.Email, p.UserID)
	return nil
}

func handlePasswordReset(_ context.Context, t *asynq.Task) error {
	var p PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] PasswordReset send failed: %v", err)
		return err
	}
	log.Printf("[notify] PasswordReset sent -> to=%s", p.Email)
	return nil
}

func handleQuestEvent(_ context.Context, t *asynq.Task) error {
	var p QuestEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	email, err := lookupEmail(p.UserID)
	if err != nil {
		log.Printf("[notify][ERROR] %s recipient lookup failed: %v", t.Type(), err)
		return err
	}
	if err := SendEmail(email, p.Subject, p.Body); err != nil {
		log.Printf("[notify][ERROR] %s send failed: %v", t.Type(), err)
		return err
	}
	log.Printf("[notify] %s sent -> quest=%s to=%s", t.Type(), p.QuestID, email)
	return nil
}

func handleConflictEvent(_ context.Context, t *asynq.Task) error {
	var p ConflictEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	email, err := lookupEmail(p.UserID)
	if err != nil {
		log.Printf("[notify][ERROR] %s recipient lookup failed: %v", t.Type(), err)
		return err
	}
	if err := SendEmail(email, p.Subject, p.Body); err != nil {
		log.Printf("[notify][ERROR] %s send failed: %v", t.Type(), err)
		return err
	}
	log.Printf("[notify] %s sent -> conflict=%s to=%s", t.Type(), p.ConflictID, email)
	return nil
}

// handleGuildMasterAlert fans out to every active Guild Master.
func handleGuildMasterAlert(_ context.Context, t *asynq.Task) error {
	var p ConflictEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	rows, err := db.Conn.Query(context.Background(),
		`SELECT email FROM users WHERE role = 'guildmaster' AND is_active = TRUE`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return err
		}
		emails = append(emails, email)
	}
	for _, email := range emails {
		if err := SendEmail(email, p.Subject, p.Body); err != nil {
			log.Printf("[notify][ERROR] GuildMasterAlert send failed for %s: %v", email, err)
		}
	}
	log.Printf("[notify] GuildMasterAlert sent -> conflict=%s recipients=%d", p.ConflictID, len(emails))
	return nil
}
