package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"paralleldex/internal/auth"
	"paralleldex/internal/buddy"
	"paralleldex/internal/explore"
	"paralleldex/internal/ladder"
	"paralleldex/internal/media"
	"paralleldex/internal/model"
	"paralleldex/internal/network"
	"paralleldex/internal/overworld"
	"paralleldex/internal/service"
	"paralleldex/pkg/logger"
)

const msgBadBody = "リクエストの形式が正しくありません"

type ctxKey int

const playerKey ctxKey = iota

type Handler struct {
	svc    *service.Service
	issuer *auth.Issuer
	hub    *network.Hub
	log    *logrus.Entry
}

func NewHandler(svc *service.Service, issuer *auth.Issuer, hub *network.Hub) *Handler {
	return &Handler{svc: svc, issuer: issuer, hub: hub, log: logger.For("httpapi")}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Name string `json:"name"`
}

type registerResponse struct {
	Player model.Player `json:"player"`
	Token  string       `json:"token"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	player, err := h.svc.Register(req.Name)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	token, err := h.issuer.Issue(player.ID, player.Name)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Player: player, Token: token})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	player, err := h.svc.Player(playerID(r))
	if err != nil {
		h.fail(w, r, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.CheckIn(r.Context(), playerID(r))
	if err != nil {
		h.fail(w, r, "checkIn", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) areas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Areas())
}

func (h *Handler) exploreState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.ExploreState(playerID(r))
	if err != nil {
		h.fail(w, r, "exploreState", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type startRequest struct {
	AreaID string       `json:"area_id"`
	Mode   explore.Mode `json:"mode"`
}

func (h *Handler) startExplore(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}
	var (
		snap explore.Snapshot
		err  error
	)
	if req.Mode == "" {
		snap, err = h.svc.SelectArea(playerID(r), req.AreaID)
	} else {
		snap, err = h.svc.StartExplore(playerID(r), req.AreaID, req.Mode)
	}
	if err != nil {
		h.fail(w, r, "startExplore", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type modeRequest struct {
	Mode explore.Mode `json:"mode"`
}

func (h *Handler) beginExplore(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.BeginExplore(playerID(r), req.Mode)
	if err != nil {
		h.fail(w, r, "beginExplore", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type laneRequest struct {
	Lane int `json:"lane"`
}

func (h *Handler) playLane(w http.ResponseWriter, r *http.Request) {
	var req laneRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.PlayLane(playerID(r), req.Lane)
	if err != nil {
		h.fail(w, r, "playLane", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type spotRequest struct {
	SpotID string `json:"spot_id"`
}

func (h *Handler) interactSpot(w http.ResponseWriter, r *http.Request) {
	var req spotRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.InteractSpot(playerID(r), req.SpotID)
	if err != nil {
		h.fail(w, r, "interactSpot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) rhythmChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.svc.RhythmChart(playerID(r))
	if err != nil {
		h.fail(w, r, "rhythmChart", err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (h *Handler) capture(w http.ResponseWriter, r *http.Request) {
	var req service.CaptureRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	resp, err := h.svc.Capture(r.Context(), playerID(r), req)
	if err != nil {
		h.fail(w, r, "capture", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type closeRequest struct {
	ViewDetails bool `json:"view_details"`
}

func (h *Handler) closeResult(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	resp, err := h.svc.CloseResult(playerID(r), req.ViewDetails)
	if err != nil {
		h.fail(w, r, "closeResult", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) quitExplore(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.QuitExplore(playerID(r)); err != nil {
		h.fail(w, r, "quitExplore", err)
		return
	}
	snap, err := h.svc.ExploreState(playerID(r))
	if err != nil {
		h.fail(w, r, "quitExplore", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) overworldState(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.OverworldState(playerID(r))
	if err != nil {
		h.fail(w, r, "overworldState", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) setViewport(w http.ResponseWriter, r *http.Request) {
	var vp overworld.Viewport
	if !decode(w, r, &vp) {
		return
	}
	view, err := h.svc.SetViewport(playerID(r), vp)
	if err != nil {
		h.fail(w, r, "setViewport", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) journal(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Gallery(playerID(r))
	if err != nil {
		h.fail(w, r, "journal", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) creatureDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.CreatureDetail(playerID(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "creatureDetail", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	on, err := h.svc.ToggleFavorite(playerID(r), id)
	if err != nil {
		h.fail(w, r, "toggleFavorite", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"creature_id": id, "favorite": on})
}

func (h *Handler) lore(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Lore(playerID(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "lore", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) doctorChat(w http.ResponseWriter, r *http.Request) {
	var req service.DoctorChatRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.DoctorChat(playerID(r), req)
	if err != nil {
		h.fail(w, r, "doctorChat", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) badges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.svc.Badges(playerID(r))
	if err != nil {
		h.fail(w, r, "badges", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"badges": badges})
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Inventory(playerID(r))
	if err != nil {
		h.fail(w, r, "inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) useItem(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.UseItem(playerID(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "useItem", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getBuddy(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Buddy(playerID(r))
	if err != nil {
		h.fail(w, r, "getBuddy", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type setBuddyRequest struct {
	CreatureID string `json:"creature_id"`
}

func (h *Handler) setBuddy(w http.ResponseWriter, r *http.Request) {
	var req setBuddyRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.SetBuddy(playerID(r), req.CreatureID)
	if err != nil {
		h.fail(w, r, "setBuddy", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) petBuddy(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.PetBuddy(playerID(r))
	if err != nil {
		h.fail(w, r, "petBuddy", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) evolveBuddy(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.EvolveBuddy(playerID(r))
	if err != nil {
		h.fail(w, r, "evolveBuddy", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// uploadSnapshot accepts a multipart "photo" field or a raw image body.
func (h *Handler) uploadSnapshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxSnapshotBytes+64<<10)

	var (
		data     []byte
		fileName string
		err      error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, ferr := r.FormFile("photo")
		if ferr != nil {
			h.log.WithError(ferr).Debug("snapshot form read failed")
			writeError(w, http.StatusBadRequest, msgBadBody)
			return
		}
		defer file.Close()
		fileName = header.Filename
		data, err = io.ReadAll(file)
	} else {
		fileName = r.URL.Query().Get("name")
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, media.ErrSnapshotTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}

	resp, err := h.svc.UploadSnapshot(r.Context(), playerID(r), data, fileName)
	if err != nil {
		h.fail(w, r, "uploadSnapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) debugReset(w http.ResponseWriter, r *http.Request) {
	var req service.ResetRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if !req.Discoveries && !req.Uncle {
		req = service.ResetRequest{Discoveries: true, Uncle: true}
	}
	if err := h.svc.DebugReset(r.Context(), playerID(r), req); err != nil {
		h.fail(w, r, "debugReset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps service errors to statuses. Unknown errors are logged and
// reported as 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	entry := h.log.WithFields(logrus.Fields{
		"op":        op,
		"player_id": playerID(r),
		"status":    status,
	}).WithError(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		entry.Error("request failed")
		writeError(w, status, "サーバーでエラーが発生しました")
		return
	}
	entry.Debug("request rejected")
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, service.ErrCreatureNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, explore.ErrUnknownArea),
		errors.Is(err, explore.ErrUnknownSpot):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNameTooLong),
		errors.Is(err, service.ErrQuestionEmpty),
		errors.Is(err, explore.ErrUnknownMode),
		errors.Is(err, ladder.ErrLaneOutOfRange),
		errors.Is(err, overworld.ErrBadDirection),
		errors.Is(err, media.ErrEmptySnapshot),
		errors.Is(err, media.ErrNotAnImage):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrSnapshotTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, explore.ErrInvalidTransition),
		errors.Is(err, explore.ErrSpotInactive),
		errors.Is(err, service.ErrNotDiscovered),
		errors.Is(err, service.ErrNoBuddy),
		errors.Is(err, service.ErrItemNotOwned),
		errors.Is(err, service.ErrNoChart),
		errors.Is(err, service.ErrNothingNearby),
		errors.Is(err, buddy.ErrNotReadyToEvolve):
		return http.StatusConflict
	case errors.Is(err, service.ErrDebugDisabled):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, media.ErrUploadUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return false
	}
	return true
}

// decodeOptional accepts an empty body and leaves dst untouched.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return false
	}
	return true
}

func playerID(r *http.Request) string {
	id, _ := r.Context().Value(playerKey).(string)
	return id
}

func withPlayer(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, playerKey, id)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
