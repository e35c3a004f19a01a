package clue

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/credit"
	"github.com/buzzhunt/buzzhunt-api/internal/middleware"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/errorhandler"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Unlock handles POST /clues/{id}/unlock
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	clueID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid clue id")
		return
	}

	res, err := h.svc.Unlock(r.Context(), ownerID, clueID)
	if err != nil {
		switch {
		case errors.Is(err, ErrClueNotFound):
			response.NotFound(w, "clue not found")
		case errors.Is(err, credit.ErrInsufficientCredits):
			response.InsufficientCredits(w)
		case errors.Is(err, ErrStorageWriteFailure):
			response.ServiceUnavailable(w, "unlock could not be recorded, credits were refunded")
		default:
			errorhandler.Internal(r.Context(), w, "unlock clue", err)
		}
		return
	}

	response.OK(w, res)
}

// Unlocked handles GET /clues/unlocked
func (h *Handler) Unlocked(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	items, err := h.svc.ListUnlocked(r.Context(), ownerID)
	if err != nil {
		errorhandler.Internal(r.Context(), w, "list unlocked clues", err)
		return
	}

	response.OK(w, map[string]interface{}{"items": items})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/unlocked", h.Unlocked)
	r.Post("/{id}/unlock", h.Unlock)
	return r
}
