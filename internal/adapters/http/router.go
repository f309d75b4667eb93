package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dkeye/callrelay/internal/adapters/signal"
	"github.com/dkeye/callrelay/internal/app/orch"
	"github.com/dkeye/callrelay/internal/config"
	"github.com/dkeye/callrelay/internal/core"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const (
	participantKey = "participant_id"
	sessionName    = "CallRelaySession"
)

// HistoryReader serves stored room events, newest first.
type HistoryReader interface {
	Events(room domain.RoomID, limit int) ([]core.RoomEvent, error)
}

type Deps struct {
	Sup     *orch.Supervisor
	Signal  *signal.SignalWSController
	History HistoryReader
}

// ParticipantMiddleware picks up the identity issued by the upstream auth
// collaborator from header. With sticky set it falls back to the one
// remembered in the session cookie.
func ParticipantMiddleware(header string, sticky bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" && sticky {
			if v, ok := sessions.Default(c).Get(participantKey).(string); ok {
				id = v
			}
		}
		c.Set(participantKey, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().Str("module", "adapters.http").Str("method", c.Request.Method).Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).Dur("latency", time.Since(start)).Msg("request")
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(requestLogger())
	}
	r.Use(gin.Recovery())

	if cfg.Session.Sticky {
		store := cookie.NewStore([]byte(cfg.Secret))
		store.Options(sessions.Options{
			Path:     "/",
			MaxAge:   int(cfg.Session.MaxAge.Seconds()),
			Secure:   cfg.Session.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		r.Use(sessions.Sessions(sessionName, store))
	}
	r.Use(ParticipantMiddleware(cfg.ParticipantHeader, cfg.Session.Sticky))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/ws/signal", func(c *gin.Context) {
		handleSignal(ctx, c, deps.Signal, cfg.Session.Sticky)
	})
	api.GET("/rooms", func(c *gin.Context) {
		rooms, err := deps.Sup.Rooms()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	})
	api.GET("/rooms/:id/history", func(c *gin.Context) {
		handleHistory(c, deps.History, cfg.History.ListLimit)
	})
	api.GET("/ice-servers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": iceServers(cfg.ICEServers)})
	})

	log.Info().Str("module", "adapters.http").Bool("history", deps.History != nil).
		Bool("sticky_session", cfg.Session.Sticky).Msg("router setup")
	return r
}

func handleSignal(ctx context.Context, c *gin.Context, ctl *signal.SignalWSController, sticky bool) {
	cid := domain.NewConnID()
	pid, err := domain.ResolveParticipantID(c.GetString(participantKey), cid)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	header := http.Header{}
	if sticky {
		// a reconnect from the same client resumes as the same participant
		session := sessions.Default(c)
		session.Set(participantKey, string(pid))
		if err := session.Save(); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
		}
		for _, v := range c.Writer.Header().Values("Set-Cookie") {
			header.Add("Set-Cookie", v)
		}
	}

	log.Info().Str("module", "adapters.http").Str("participant", string(pid)).Msg("ws signal endpoint hit")
	ctl.Serve(ctx, c.Writer, c.Request, header, pid, cid)
}

func handleHistory(c *gin.Context, history HistoryReader, maxLimit int) {
	if history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	room, err := domain.ParseRoomID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := maxLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if limit <= 0 || n < limit {
			limit = n
		}
	}
	events, err := history.Events(room, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("history read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room, "events": events})
}

func iceServers(in []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(in))
	for _, s := range in {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, srv)
	}
	return out
}
