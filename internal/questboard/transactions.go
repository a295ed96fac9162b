package questboard

import (
	"github.com/labstack/echo/v4"
)

// QuestTransactions returns the quest's journal rows in order.
func (h *Handler) QuestTransactions(c echo.Context) error {
	txs, err := h.Journal.ByQuest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return okItems(c, txs)
}

// QuestBalance replays the quest's journal as an integrity cross-check
// against the live escrow.
func (h *Handler) QuestBalance(c echo.Context) error {
	questID := c.Param("id")
	balance, err := h.Journal.ComputeQuestBalance(c.Request().Context(), questID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"quest_id": questID, "journal_balance": balance})
}
