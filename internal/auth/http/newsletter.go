package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/service"
	"github.com/spyberpolymath/folio-auth/pkg/httpx"
	"github.com/spyberpolymath/folio-auth/pkg/slogx"
)

// NewsletterHandler serves mailing list subscribe/unsubscribe, plus the
// admin-only subscriber list.
type NewsletterHandler struct {
	NewsletterService *service.NewsletterService
}

type newsletterRequest struct {
	Email string `json:"email"`
}

type newsletterSubscriberEntry struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleSubscribe handles POST /v1/newsletter/subscribe.
func (h *NewsletterHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.NewsletterService.Subscribe)
}

// HandleUnsubscribe handles DELETE /v1/newsletter/subscribe.
func (h *NewsletterHandler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.NewsletterService.Unsubscribe)
}

func (h *NewsletterHandler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, email string) error,
) {
	ctx := r.Context()

	var req newsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidRequest.WriteError(w)
		return
	}

	if err := op(ctx, req.Email); err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			errInvalidRequest.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("newsletter update failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleList handles GET /v1/admin/newsletter.
func (h *NewsletterHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subs, err := h.NewsletterService.List(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("list subscribers", "err", err)
		errServerError.WriteError(w)
		return
	}

	out := make([]newsletterSubscriberEntry, 0, len(subs))
	for _, s := range subs {
		out = append(out, newsletterSubscriberEntry{
			ID:        s.ID,
			Email:     s.Email,
			CreatedAt: s.CreatedAt,
		})
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"subscribers": out})
}
