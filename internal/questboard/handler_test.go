package questboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/questhub/internal/ledger"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// invoke runs one handler with an authenticated echo context.
func invoke(t *testing.T, fn echo.HandlerFunc, method, body, userID, role string, params map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	c.Set("role", role)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, fn(c))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func newBoard(t *testing.T) (*ledger.MemStore, *Handler) {
	t.Helper()
	store := ledger.NewMemStore()
	store.SeedWallet("npc-1", 1000)
	store.SeedWallet("adv-1", 500)
	store.SeedWallet(ledger.TreasuryAccount, 10_000)
	store.SeedProfile(ledger.Profile{UserID: "npc-1", Rank: "F"})
	store.SeedProfile(ledger.Profile{UserID: "adv-1", Rank: "F", XP: 150})
	return store, NewHandler(store)
}

func postQuest(t *testing.T, h *Handler, reward int64) string {
	t.Helper()
	body := `{"title":"Slay the wolves","reward_gold":` + jsonInt(reward) + `,"xp_reward":100}`
	rec, env := invoke(t, h.PostQuest, http.MethodPost, body, "npc-1", "npc", nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	var q ledger.Quest
	require.NoError(t, json.Unmarshal(env.Data, &q))
	return q.ID
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestPostQuestLocksReward(t *testing.T) {
	store, h := newBoard(t)
	questID := postQuest(t, h, 400)

	// Gold moved out of the wallet and into escrow.
	require.Equal(t, int64(600), walletOf(t, store, "npc-1"))
	e, err := h.Vault.EscrowByQuest(context.Background(), questID)
	require.NoError(t, err)
	require.Equal(t, ledger.EscrowActive, e.Status)
	require.Equal(t, int64(400), e.Amount)
}

func TestPostQuestInsufficientGold(t *testing.T) {
	store, h := newBoard(t)
	body := `{"title":"Impossible ask","reward_gold":5000}`
	rec, env := invoke(t, h.PostQuest, http.MethodPost, body, "npc-1", "npc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)

	// The quest insert rolled back with the failed debit.
	require.Equal(t, int64(1000), walletOf(t, store, "npc-1"))
}

func TestPostQuestRoleRequired(t *testing.T) {
	_, h := newBoard(t)
	rec, _ := invoke(t, h.PostQuest, http.MethodPost, `{"title":"x","reward_gold":10}`, "adv-1", "adventurer", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHappyPathPostAcceptCompletePay(t *testing.T) {
	store, h := newBoard(t)
	questID := postQuest(t, h, 400)
	p := map[string]string{"id": questID}

	rec, env := invoke(t, h.AcceptQuest, http.MethodPost, "", "adv-1", "adventurer", p)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	rec, env = invoke(t, h.CompleteQuest, http.MethodPost, `{"report":"den cleared"}`, "adv-1", "adventurer", p)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	rec, env = invoke(t, h.PayQuest, http.MethodPost, "{}", "npc-1", "npc", p)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	var q ledger.Quest
	require.NoError(t, json.Unmarshal(env.Data, &q))
	require.Equal(t, ledger.QuestPaid, q.Status)
	require.Equal(t, int64(400), q.PaidGold)

	// Reward landed, XP awarded, rank recalculated (150 + 100 crosses E).
	require.Equal(t, int64(900), walletOf(t, store, "adv-1"))
	require.Equal(t, int64(600), walletOf(t, store, "npc-1"))
	prof := profileOf(t, store, "adv-1")
	require.Equal(t, int64(250), prof.XP)
	require.Equal(t, "E", prof.Rank)
}

func TestPayQuestPartial(t *testing.T) {
	store, h := newBoard(t)
	questID := postQuest(t, h, 400)
	p := map[string]string{"id": questID}

	invoke(t, h.AcceptQuest, http.MethodPost, "", "adv-1", "adventurer", p)
	invoke(t, h.CompleteQuest, http.MethodPost, "{}", "adv-1", "adventurer", p)

	rec, env := invoke(t, h.PayQuest, http.MethodPost, `{"actual_amount":250}`, "npc-1", "npc", p)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	require.Equal(t, int64(750), walletOf(t, store, "adv-1"))
	require.Equal(t, int64(750), walletOf(t, store, "npc-1")) // 600 + 150 refund
}

func TestAcceptOwnQuestRejected(t *testing.T) {
	_, h := newBoard(t)
	questID := postQuest(t, h, 100)

	// Same user on both sides is rejected regardless of role claim.
	rec, _ := invoke(t, h.AcceptQuest, http.MethodPost, "", "npc-1", "adventurer", map[string]string{"id": questID})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayBeforeCompletionRejected(t *testing.T) {
	_, h := newBoard(t)
	questID := postQuest(t, h, 400)
	p := map[string]string{"id": questID}

	invoke(t, h.AcceptQuest, http.MethodPost, "", "adv-1", "adventurer", p)

	rec, _ := invoke(t, h.PayQuest, http.MethodPost, "{}", "npc-1", "npc", p)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelOpenQuestRefunds(t *testing.T) {
	store, h := newBoard(t)
	questID := postQuest(t, h, 400)
	p := map[string]string{"id": questID}

	rec, env := invoke(t, h.CancelQuest, http.MethodPost, "", "npc-1", "npc", p)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	require.Equal(t, int64(1000), walletOf(t, store, "npc-1"))

	// An accepted quest cannot be cancelled through this path.
	questID2 := postQuest(t, h, 100)
	p2 := map[string]string{"id": questID2}
	invoke(t, h.AcceptQuest, http.MethodPost, "", "adv-1", "adventurer", p2)
	rec, _ = invoke(t, h.CancelQuest, http.MethodPost, "", "npc-1", "npc", p2)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestConflictFlowAdventurerWin(t *testing.T) {
	store, h := newBoard(t)
	questID := postQuest(t, h, 400)
	p := map[string]string{"id": questID}

	invoke(t, h.AcceptQuest, http.MethodPost, "", "adv-1", "adventurer", p)
	invoke(t, h.CompleteQuest, http.MethodPost, "{}", "adv-1", "adventurer", p)

	// NPC refuses to pay; adventurer stakes half the reward to escalate.
	rec, env := invoke(t, h.ReportConflict, http.MethodPost,
		`{"type":"REPORT_REJECTED","description":"work done, payment refused"}`,
		"adv-1", "adventurer", p)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	require.Equal(t, int64(300), walletOf(t, store, "adv-1")) // 500 - 200 stake

	var c ledger.Conflict
	require.NoError(t, json.Unmarshal(env.Data, &c))
	require.Equal(t, int64(200), c.EscrowedAmount)

	// Paying while the conflict is open is blocked.
	rec, _ = invoke(t, h.PayQuest, http.MethodPost, "{}", "npc-1", "npc", p)
	require.Equal(t, http.StatusConflict, rec.Code)

	_, err := h.Arbiter.Resolve(context.Background(), c.ID, ledger.AdventurerWin, "gm-1", "")
	require.NoError(t, err)

	// 300 after stake + 600 award + 200 stake returned.
	require.Equal(t, int64(1100), walletOf(t, store, "adv-1"))
	require.Equal(t, int64(9800), walletOf(t, store, ledger.TreasuryAccount))
}

func TestConflictFlowNPCWinDemotes(t *testing.T) {
	store, h := newBoard(t)
	store.SeedProfile(ledger.Profile{UserID: "adv-1", Rank: "D", XP: 450})
	questID := postQuest(t, h, 400)
	p := map[string]string{"id": questID}

	invoke(t, h.AcceptQuest, http.MethodPost, "", "adv-1", "adventurer", p)

	rec, env := invoke(t, h.ReportConflict, http.MethodPost,
		`{"type":"DEADLINE_MISSED","description":"no report by deadline"}`,
		"npc-1", "npc", p)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	var c ledger.Conflict
	require.NoError(t, json.Unmarshal(env.Data, &c))
	// NPC-raised conflicts stake nothing.
	require.Equal(t, int64(0), c.EscrowedAmount)
	require.Equal(t, int64(500), walletOf(t, store, "adv-1"))

	_, err := h.Arbiter.Resolve(context.Background(), c.ID, ledger.NPCWin, "gm-1", "")
	require.NoError(t, err)

	require.Equal(t, int64(1000), walletOf(t, store, "npc-1"))
	require.Equal(t, "E", profileOf(t, store, "adv-1").Rank)
}

func TestSecondConflictRejected(t *testing.T) {
	store, h := newBoard(t)
	questID := postQuest(t, h, 400)
	p := map[string]string{"id": questID}

	invoke(t, h.AcceptQuest, http.MethodPost, "", "adv-1", "adventurer", p)
	rec, env := invoke(t, h.ReportConflict, http.MethodPost, `{"type":"QUEST_CHANGED"}`, "adv-1", "adventurer", p)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	rec, _ = invoke(t, h.ReportConflict, http.MethodPost, `{"type":"QUEST_CHANGED"}`, "npc-1", "npc", p)
	require.Equal(t, http.StatusConflict, rec.Code)

	// The failed attempt staked nothing extra.
	require.Equal(t, int64(300), walletOf(t, store, "adv-1"))
}

func walletOf(t *testing.T, store ledger.Store, userID string) int64 {
	t.Helper()
	var bal int64
	err := store.View(context.Background(), func(tx ledger.Tx) error {
		var err error
		bal, err = tx.Balance(userID)
		return err
	})
	require.NoError(t, err)
	return bal
}

func profileOf(t *testing.T, store ledger.Store, userID string) *ledger.Profile {
	t.Helper()
	var p *ledger.Profile
	err := store.View(context.Background(), func(tx ledger.Tx) error {
		var err error
		p, err = tx.ProfileByID(userID)
		return err
	})
	require.NoError(t, err)
	return p
}
