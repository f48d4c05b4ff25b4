package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-callstate/internal/callstate"
	"github.com/vovakirdan/wirechat-callstate/internal/proto"
)

// APIHandlers provides the REST side of the control surface.
type APIHandlers struct {
	store CallStore
	log   *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(store CallStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		store: store,
		log:   logger,
	}
}

// DispatchResponse is returned by /api/dispatch and /api/signal.
type DispatchResponse struct {
	State   proto.StateView    `json:"state"`
	Effects []proto.EffectView `json:"effects"`
	Ignored string             `json:"ignored,omitempty"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// State returns the current call state.
// GET /api/state
func (h *APIHandlers) State(c *gin.Context) {
	snap, err := h.store.Current(c.Request.Context())
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proto.StateFrame{Seq: snap.Seq, State: proto.NewStateView(snap.State)})
}

// Dispatch applies one action.
// POST /api/dispatch
func (h *APIHandlers) Dispatch(c *gin.Context) {
	var in proto.Inbound
	if err := c.ShouldBindJSON(&in); err != nil {
		h.log.Debug().Err(err).Msg("invalid dispatch request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ev, err := proto.DecodeAction(in)
	if err != nil {
		h.log.Debug().Err(err).Str("type", in.Type).Msg("invalid action payload")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	h.dispatch(c, ev)
}

// Signal maps a signaling frame to its event and applies it.
// POST /api/signal
func (h *APIHandlers) Signal(c *gin.Context) {
	var sig proto.Signal
	if err := c.ShouldBindJSON(&sig); err != nil {
		h.log.Debug().Err(err).Msg("invalid signal request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ev, ok, err := sig.Event()
	if err != nil {
		h.log.Debug().Err(err).Str("type", sig.Type).Msg("invalid signal")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusAccepted, gin.H{"ignored": "handled by media layer"})
		return
	}

	h.dispatch(c, ev)
}

func (h *APIHandlers) dispatch(c *gin.Context, ev callstate.Event) {
	r, err := h.store.Dispatch(c.Request.Context(), ev)
	if err != nil {
		h.storeError(c, err)
		return
	}

	h.log.Info().
		Str("request_id", c.GetString(ContextKeyRequestID)).
		Str("event", ev.Kind.String()).
		Str("status", string(r.State.Status)).
		Msg("call event dispatched")
	c.JSON(http.StatusOK, newDispatchResponse(r))
}

func (h *APIHandlers) storeError(c *gin.Context, err error) {
	if errors.Is(err, callstate.ErrStoreClosed) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "call store closed"})
		return
	}
	h.log.Error().Err(err).Msg("call store request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
