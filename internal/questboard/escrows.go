package questboard

import (
	"github.com/labstack/echo/v4"
)

// QuestEscrow returns the escrow backing a quest.
func (h *Handler) QuestEscrow(c echo.Context) error {
	e, err := h.Vault.EscrowByQuest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, e)
}

// MyEscrows lists the calling NPC's active escrows.
func (h *Handler) MyEscrows(c echo.Context) error {
	userID, _ := requester(c)
	escrows, err := h.Vault.ActiveByNPC(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return okItems(c, escrows)
}

// MyEscrowStats sums the caller's locked gold.
func (h *Handler) MyEscrowStats(c echo.Context) error {
	userID, _ := requester(c)
	stats, err := h.Vault.NPCStats(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, stats)
}
