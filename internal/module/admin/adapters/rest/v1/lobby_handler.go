package v1

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"dustforce-relay/internal/module/lobby"
	"dustforce-relay/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// Broker is the thin slice of the Broker the Admin API's
// create_lobby/start_round translator needs. Both
// endpoints call directly into the Broker's own goroutine rather than
// going through a WebSocket client frame, since the HTTP handler needs
// the id/password (create_lobby) or accept/reject (start_round) back
// synchronously to build its response.
type Broker interface {
	CreateLobby(ctx context.Context) (int, string, error)
	StartRound(ctx context.Context, lobbyID int, params lobby.StartRoundParams) error
}

// LobbyHandler implements the two admin lobby-management endpoints.
type LobbyHandler struct {
	broker Broker
}

// NewLobbyHandler creates a handler bound to a running Broker.
func NewLobbyHandler(b Broker) *LobbyHandler {
	return &LobbyHandler{broker: b}
}

// CreateLobby handles POST /api/create_lobby.
func (h *LobbyHandler) CreateLobby(c *gin.Context) {
	id, password, err := h.broker.CreateLobby(c.Request.Context())
	if err != nil {
		response.Error(c, response.NewInternalError("failed to create lobby", err))
		return
	}
	c.Redirect(http.StatusFound, "../lobby/"+strconv.Itoa(id)+"?admin="+password)
}

// StartRound handles POST /api/start_round.
func (h *LobbyHandler) StartRound(c *gin.Context) {
	lobbyID, ok1 := nonNegativeForm(c, "lobby_id")
	levelID, ok2 := nonNegativeForm(c, "level_id")
	warmupSeconds, ok3 := nonNegativeForm(c, "warmup_seconds")
	breakSeconds, ok4 := nonNegativeForm(c, "break_seconds")
	roundSeconds, ok5 := nonNegativeForm(c, "round_seconds")
	password := c.PostForm("password")
	mode := c.PostForm("mode")

	if !(ok1 && ok2 && ok3 && ok4 && ok5) || (mode != "any" && mode != "ss") {
		response.Error(c, response.NewBadRequestError("invalid start_round form fields"))
		return
	}

	warmup := time.Duration(warmupSeconds) * time.Second
	brk := time.Duration(breakSeconds) * time.Second
	round := time.Duration(roundSeconds) * time.Second

	err := h.broker.StartRound(c.Request.Context(), lobbyID, lobby.StartRoundParams{
		Password: password,
		LevelID:  levelID,
		Mode:     lobby.Mode(mode),
		Warmup:   &warmup,
		Break:    &brk,
		Round:    &round,
	})
	if err != nil {
		response.Error(c, response.NewBadRequestError(err.Error()))
		return
	}

	response.Success(c, gin.H{"lobby_id": lobbyID}, "round started")
}

// RegisterProtectedRoutes mounts create_lobby/start_round under a group
// already gated by admin auth middleware.
func (h *LobbyHandler) RegisterProtectedRoutes(router *gin.RouterGroup) {
	router.POST("/create_lobby", h.CreateLobby)
	router.POST("/start_round", h.StartRound)
}

func nonNegativeForm(c *gin.Context, field string) (int, bool) {
	raw := c.PostForm(field)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
