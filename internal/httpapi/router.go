package httpapi

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"paralleldex/pkg/logger"
)

type RouterOptions struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// Limiter overrides the limiter built from RateLimitRPS/Burst.
	Limiter *RateLimiter
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handler.healthz)
	mux.HandleFunc("GET /docs", handler.swaggerUI)
	mux.HandleFunc("GET /docs/", handler.swaggerUI)
	mux.HandleFunc("GET /docs/openapi.json", handler.swaggerSpec)
	mux.HandleFunc("GET /swagger", handler.swaggerUI)
	mux.HandleFunc("GET /swagger/", handler.swaggerUI)
	mux.HandleFunc("GET /swagger/openapi.json", handler.swaggerSpec)

	mux.HandleFunc("POST /api/v1/players", handler.register)
	mux.HandleFunc("GET /api/v1/areas", handler.areas)
	mux.HandleFunc("GET /ws/overworld", handler.overworldSocket)

	authed := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, handler.requirePlayer(fn))
	}
	authed("GET /api/v1/me", handler.me)
	authed("POST /api/v1/checkin", handler.checkIn)

	authed("GET /api/v1/explore", handler.exploreState)
	authed("POST /api/v1/explore/start", handler.startExplore)
	authed("POST /api/v1/explore/mode", handler.beginExplore)
	authed("POST /api/v1/explore/lane", handler.playLane)
	authed("POST /api/v1/explore/spot", handler.interactSpot)
	authed("GET /api/v1/explore/rhythm", handler.rhythmChart)
	authed("POST /api/v1/explore/capture", handler.capture)
	authed("POST /api/v1/explore/close", handler.closeResult)
	authed("POST /api/v1/explore/quit", handler.quitExplore)

	authed("GET /api/v1/overworld", handler.overworldState)
	authed("POST /api/v1/overworld/viewport", handler.setViewport)

	authed("GET /api/v1/journal", handler.journal)
	authed("GET /api/v1/journal/{id}", handler.creatureDetail)
	authed("POST /api/v1/journal/{id}/favorite", handler.toggleFavorite)
	authed("GET /api/v1/journal/{id}/lore", handler.lore)
	authed("POST /api/v1/doctor/chat", handler.doctorChat)
	authed("GET /api/v1/badges", handler.badges)

	authed("GET /api/v1/inventory", handler.inventory)
	authed("POST /api/v1/inventory/{id}/use", handler.useItem)

	authed("GET /api/v1/buddy", handler.getBuddy)
	authed("POST /api/v1/buddy", handler.setBuddy)
	authed("POST /api/v1/buddy/pet", handler.petBuddy)
	authed("POST /api/v1/buddy/evolve", handler.evolveBuddy)

	authed("POST /api/v1/snapshots", handler.uploadSnapshot)
	authed("POST /api/v1/debug/reset", handler.debugReset)

	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, logger.For("ratelimit"))
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           600,
	})

	return withRequestLogging(c.Handler(limiter.Middleware(withJSONContentType(mux))))
}

func (h *Handler) requirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.issuer.Validate(bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withPlayer(r.Context(), claims.PlayerID)))
	})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}

func withJSONContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestLogging(next http.Handler) http.Handler {
	log := logger.For("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"uri":      r.URL.RequestURI(),
			"status":   rec.status,
			"duration": time.Since(start).Truncate(time.Millisecond).String(),
			"remote":   r.RemoteAddr,
		}).Info("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed by the websocket upgrade behind the logging middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
