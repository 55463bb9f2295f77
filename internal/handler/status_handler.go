package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/wishwall/internal/middleware"
	"github.com/hitoshi/wishwall/internal/model"
	"github.com/hitoshi/wishwall/internal/wall"
)

// WallSource はステータスサーバーが参照する祝福一覧の状態。
// wall.Controllerが満たす。
type WallSource interface {
	Snapshot() wall.State
	Load(ctx context.Context) error
}

// StatusHandler は手元の祝福一覧の状態を返すハンドラー。
type StatusHandler struct {
	wall   WallSource
	logger *slog.Logger
}

// NewStatusHandler はStatusHandlerの新しいインスタンスを生成する。
func NewStatusHandler(source WallSource, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{wall: source, logger: logger}
}

type healthResponse struct {
	Status    string `json:"status"`
	WallSize  int    `json:"wall_size"`
	LastError string `json:"last_error,omitempty"`
}

type wishesResponse struct {
	Wishes  []*model.Wish `json:"wishes"`
	Total   int           `json:"total"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

// Health はプロセスの稼働状況を返す。読み込みに失敗していても200を返し、last_errorに理由を載せる。
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.wall.Snapshot()
	resp := healthResponse{Status: "ok", WallSize: len(state.Wishes)}
	if state.Err != nil {
		resp.LastError = state.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Wishes は保持している祝福一覧のスナップショットを返す。
func (h *StatusHandler) Wishes(w http.ResponseWriter, r *http.Request) {
	state := h.wall.Snapshot()
	resp := wishesResponse{
		Wishes:  state.Wishes,
		Total:   state.Total,
		Loading: state.Loading,
	}
	if resp.Wishes == nil {
		resp.Wishes = []*model.Wish{}
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Refresh は一覧を即時に再読み込みする。失敗時は503でAPIErrorを返す。
func (h *StatusHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.wall.Load(r.Context()); err != nil {
		h.logger.Warn("manual refresh failed", slog.String("error", err.Error()))
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			apiErr = model.NewLoadFailedError(err)
		}
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, apiErr)
		return
	}
	h.Wishes(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
