package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trickwire/twentyeight/internal/game"
	"github.com/trickwire/twentyeight/internal/rules"
)

// setupRouter builds the HTTP surface. Game references in paths accept
// either the session ID or the join code.
func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/games", s.handleCreateGame)
		api.GET("/games", s.handleListGames)
		api.GET("/games/:ref", s.handleGetGame)
		api.POST("/games/:ref/join", s.handleJoinGame)
		api.POST("/games/:ref/start", s.handleStartGame)
		api.GET("/games/:ref/rounds", s.handleListRounds)
		api.GET("/games/:ref/snapshots", s.handleListSnapshots)
		api.DELETE("/games/:ref", s.handleDeleteGame)
	}

	r.GET("/ws/:ref", s.handleWebSocket)

	return r
}

type createGameRequest struct {
	Mode      string       `json:"mode"`
	MaxBid    int          `json:"max_bid"`
	TrumpMode string       `json:"trump_mode"`
	Player    *joinRequest `json:"player"`
}

type joinRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Seat     *int   `json:"seat"`
}

type startRequest struct {
	FillBots *bool `json:"fill_bots"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCreateGame makes a session and optionally seats the creator in
// the same call. An empty body means a default 28 game.
func (s *Server) handleCreateGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	cfg := game.Config{
		Mode:      rules.Mode(req.Mode),
		MaxBid:    req.MaxBid,
		TrumpMode: game.TrumpMode(req.TrumpMode),
	}
	sess, err := s.registry.Create(c.Request.Context(), cfg)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	resp := gin.H{
		"session_id": sess.Engine.ID(),
		"code":       sess.Code,
		"mode":       sess.Engine.Config().Mode,
		"seats":      sess.Engine.Seats(),
	}
	if req.Player != nil {
		info, err := s.dispatcher.Join(c.Request.Context(), sess.Engine.ID(),
			playerOrAnon(req.Player.PlayerID), req.Player.Name, seatOrAuto(req.Player.Seat))
		if err != nil {
			// The session stands either way; the creator can still join
			// by code. Report the seat problem, not a create failure.
			s.abortWithError(c, err)
			return
		}
		resp["player"] = info
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleListGames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.registry.List()})
}

// handleGetGame returns public state, or a seat's private view when
// the caller passes its player_id. Hands never leak to other seats.
func (s *Server) handleGetGame(c *gin.Context) {
	sess, err := s.registry.Resolve(c.Request.Context(), c.Param("ref"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	seat := -1
	if pid := c.Query("player_id"); pid != "" {
		info, ok := sess.Engine.PlayerByID(pid)
		if !ok {
			s.abortWithError(c, game.Errf(game.KindInvalidValue,
				"player %q is not seated in this session", pid))
			return
		}
		seat = info.Seat
	}
	c.JSON(http.StatusOK, gin.H{
		"code":  sess.Code,
		"state": stateFor(sess.Engine, seat),
	})
}

func (s *Server) handleJoinGame(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	sess, err := s.registry.Resolve(c.Request.Context(), c.Param("ref"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	info, err := s.dispatcher.Join(c.Request.Context(), sess.Engine.ID(),
		playerOrAnon(req.PlayerID), req.Name, seatOrAuto(req.Seat))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.Engine.ID(),
		"code":       sess.Code,
		"player":     info,
	})
}

// handleStartGame deals the next round. Empty seats fill with bots
// unless fill_bots is explicitly false.
func (s *Server) handleStartGame(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	fillBots := true
	if req.FillBots != nil {
		fillBots = *req.FillBots
	}
	sess, err := s.registry.Resolve(c.Request.Context(), c.Param("ref"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if err := s.dispatcher.StartRound(c.Request.Context(), sess.Engine.ID(), fillBots); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.Engine.ID(),
		"state":      sess.Engine.PublicState(),
	})
}

func (s *Server) handleListRounds(c *gin.Context) {
	sess, err := s.registry.Resolve(c.Request.Context(), c.Param("ref"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	rounds, err := s.registry.Store().ListRounds(c.Request.Context(), sess.Engine.ID())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.Engine.ID(),
		"rounds":     rounds,
	})
}

type snapshotSummary struct {
	Revision uint64     `json:"revision"`
	Phase    game.State `json:"phase"`
	Reason   string     `json:"reason"`
	SavedAt  time.Time  `json:"saved_at"`
}

// handleListSnapshots lists the retained snapshot metadata. The state
// payloads stay server-side; clients get phases and timestamps only.
func (s *Server) handleListSnapshots(c *gin.Context) {
	sess, err := s.registry.Resolve(c.Request.Context(), c.Param("ref"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	recs, err := s.registry.Store().ListSnapshots(c.Request.Context(), sess.Engine.ID())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	summaries := make([]snapshotSummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, snapshotSummary{
			Revision: rec.Revision,
			Phase:    rec.Phase,
			Reason:   rec.Reason,
			SavedAt:  rec.SavedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.Engine.ID(),
		"snapshots":  summaries,
	})
}

func (s *Server) handleDeleteGame(c *gin.Context) {
	sess, err := s.registry.Resolve(c.Request.Context(), c.Param("ref"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if err := s.removeSession(c.Request.Context(), sess.Engine.ID()); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleWebSocket resolves the session before upgrading so a bad code
// still gets a proper HTTP error.
func (s *Server) handleWebSocket(c *gin.Context) {
	sess, err := s.registry.Resolve(c.Request.Context(), c.Param("ref"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := NewConnection(ws, s, sess.Engine.ID())
	s.hub.Subscribe(conn)
	connectionsActive.Inc()
	s.logger.Debug("websocket connected",
		"session", sess.Engine.ID(), "remote", ws.RemoteAddr().String())

	go conn.writePump()
	go conn.readPump()

	// First snapshot goes out unprompted so clients render immediately.
	conn.sendState()
}

func seatOrAuto(seat *int) int {
	if seat == nil {
		return -1
	}
	return *seat
}

// playerOrAnon mints an ID for anonymous joins. The response carries it
// back, and the client must present it to identify over the socket.
func playerOrAnon(playerID string) string {
	if playerID == "" {
		return uuid.NewString()
	}
	return playerID
}

func httpStatus(err error) int {
	if errors.Is(err, errStructural) {
		return http.StatusBadRequest
	}
	switch game.KindOf(err) {
	case game.KindSessionNotFound:
		return http.StatusNotFound
	case game.KindInvalidValue:
		return http.StatusBadRequest
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": err.Error()}
	if kind := game.KindOf(err); kind != "" {
		body["code"] = string(kind)
	}
	c.JSON(status, body)
}
