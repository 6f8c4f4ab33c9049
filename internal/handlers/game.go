package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritz541/iamwheel/internal/logger"
	"github.com/ritz541/iamwheel/internal/services"
)

type GameHandler struct {
	store *services.PgRoundStore
}

func NewGameHandler(store *services.PgRoundStore) *GameHandler {
	return &GameHandler{store: store}
}

func (h *GameHandler) RecentGames(c *gin.Context) {
	games, err := h.store.RecentGames(c.Request.Context(), 20)
	if err != nil {
		logger.Errorf("failed to load recent games: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load recent games"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (h *GameHandler) UserGames(c *gin.Context) {
	userID := c.GetString("user_id")

	games, err := h.store.UserGames(c.Request.Context(), userID, 20)
	if err != nil {
		logger.Errorf("failed to load game history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load game history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}
