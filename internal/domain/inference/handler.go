package inference

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/buzzhunt/buzzhunt-api/internal/middleware"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/errorhandler"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/response"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/validator"
)

// ClueSource supplies an owner's unlocked clue text.
type ClueSource interface {
	UnlockedTexts(ctx context.Context, ownerID uuid.UUID) ([]string, error)
}

// InferRequest carries clue text. With no clues the owner's unlocked ones are used.
type InferRequest struct {
	Clues []string `json:"clues" validate:"omitempty,max=100,dive,max=2000"`
}

type Handler struct {
	engine *Engine
	clues  ClueSource
}

// NewHandler creates the handler. clues may be nil.
func NewHandler(engine *Engine, clues ClueSource) *Handler {
	return &Handler{engine: engine, clues: clues}
}

// Infer handles POST /inference
func (h *Handler) Infer(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req InferRequest
	if r.ContentLength != 0 {
		if err := response.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, "invalid JSON body")
			return
		}
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	texts := req.Clues
	if len(texts) == 0 && h.clues != nil {
		var err error
		texts, err = h.clues.UnlockedTexts(r.Context(), ownerID)
		if err != nil {
			errorhandler.Internal(r.Context(), w, "load unlocked clues", err)
			return
		}
	}

	response.OK(w, h.engine.Infer(texts))
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Infer)
	return r
}
