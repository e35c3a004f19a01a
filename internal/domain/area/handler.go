package area

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

// Buzz handles POST /areas/buzz
func (h *Handler) Buzz(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	a, err := h.svc.GenerateArea(r.Context(), ownerID)
	if err != nil {
		switch {
		case errors.Is(err, credit.ErrInsufficientCredits):
			response.InsufficientCredits(w)
		case errors.Is(err, ErrStorageWriteFailure):
			response.ServiceUnavailable(w, "search area could not be stored, any charge was refunded")
		default:
			errorhandler.Internal(r.Context(), w, "generate area", err)
		}
		return
	}

	response.Created(w, a)
}

// List handles GET /areas
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	areas, err := h.svc.ListAreas(r.Context(), ownerID)
	if err != nil {
		errorhandler.Internal(r.Context(), w, "list areas", err)
		return
	}

	response.OK(w, map[string]interface{}{"items": areas})
}

// Consistency handles GET /areas/consistency
func (h *Handler) Consistency(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	c, err := h.svc.CurrentWeekConsistency(r.Context(), ownerID)
	if err != nil {
		errorhandler.Internal(r.Context(), w, "area consistency", err)
		return
	}
	if c == nil {
		response.NotFound(w, "no search area this week")
		return
	}

	response.OK(w, c)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	r.Post("/buzz", h.Buzz)
	r.Get("/consistency", h.Consistency)
	return r
}
