package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oncosaferx/authcore/internal/platform/httpx"
)

// Handler serves the compliance reporting surface.
type Handler struct {
	logger   *slog.Logger
	recorder *Recorder
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, recorder *Recorder) *Handler {
	return &Handler{logger: logger, recorder: recorder}
}

// MountRoutes registers audit routes. Permission gating is applied by the
// router so compliance queries stay behind audit.view.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries", h.searchEntries)
}

func (h *Handler) searchEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := SearchCriteria{
		TenantID:  q.Get("tenantId"),
		EventType: q.Get("eventType"),
		RiskLevel: q.Get("riskLevel"),
	}
	if actor := q.Get("actor"); actor != "" {
		criteria.ActorHash = h.recorder.HashActor(actor)
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be RFC3339")
			return
		}
		criteria.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be RFC3339")
			return
		}
		criteria.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			criteria.Limit = n
		}
	}

	entries, err := h.recorder.Search(r.Context(), criteria)
	if err != nil {
		h.logger.Error("audit search", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
