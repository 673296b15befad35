package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/usecase/dashboard"
	"github.com/simaogato/tradejournal-backend/internal/usecase/desk"
)

// TradeManager is the trade store as used by the API
type TradeManager interface {
	Records() []domain.TradeRecord
	Remove(ctx context.Context, recordID string) error
	Retry(ctx context.Context, localKey string) (*domain.PendingWrite, error)
	Discard(localKey string) error
}

// SettingsManager is the settings store as used by the API
type SettingsManager interface {
	Current() domain.AccountSettings
	Update(ctx context.Context, capital decimal.Decimal) (*domain.PendingWrite, error)
}

// Handler serves the desk API
type Handler struct {
	desk      *desk.Service
	trades    TradeManager
	settings  SettingsManager
	dashboard *dashboard.DashboardService
}

// NewHandler creates a new Handler
func NewHandler(deskService *desk.Service, trades TradeManager, settings SettingsManager, dashboardService *dashboard.DashboardService) *Handler {
	return &Handler{
		desk:      deskService,
		trades:    trades,
		settings:  settings,
		dashboard: dashboardService,
	}
}

// GetChecklist returns the checklist
// GET /api/v1/checklist
func (h *Handler) GetChecklist(c *gin.Context) {
	Success(c, checklistViews(h.desk.State().Items))
}

// ToggleChecklistItem flips one checklist item
// POST /api/v1/checklist/:id/toggle
func (h *Handler) ToggleChecklistItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid checklist item id")
		return
	}

	if _, err := h.desk.Toggle(id); err != nil {
		if errors.Is(err, domain.ErrInvalidOperation) {
			NotFound(c, err.Error())
			return
		}
		DomainError(c, err)
		return
	}

	Success(c, deskView(h.desk.State()))
}

// GetDraft returns the desk
// GET /api/v1/draft
func (h *Handler) GetDraft(c *gin.Context) {
	Success(c, deskView(h.desk.State()))
}

// UpdateDraftRequest edits the draft; absent fields are left alone
type UpdateDraftRequest struct {
	PnL       *string `json:"pnl"`
	Direction *string `json:"direction"`
	Emotions  *string `json:"emotions"`
}

// UpdateDraft edits the draft fields
// PUT /api/v1/draft
func (h *Handler) UpdateDraft(c *gin.Context) {
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	// Validate everything before touching the draft.
	var direction domain.Direction
	if req.Direction != nil {
		d, err := domain.ParseDirection(*req.Direction)
		if err != nil {
			DomainError(c, err)
			return
		}
		direction = d
	}
	if req.PnL != nil {
		if err := h.desk.SetPnL(*req.PnL); err != nil {
			DomainError(c, err)
			return
		}
	}
	if req.Direction != nil {
		if err := h.desk.SetDirection(direction); err != nil {
			DomainError(c, err)
			return
		}
	}
	if req.Emotions != nil {
		if err := h.desk.SetEmotions(*req.Emotions); err != nil {
			DomainError(c, err)
			return
		}
	}

	Success(c, deskView(h.desk.State()))
}

// AttachScreenshot sets the draft screenshot from the raw request body
// PUT /api/v1/draft/screenshot
func (h *Handler) AttachScreenshot(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, domain.MaxScreenshotBytes+1))
	if err != nil {
		BadRequest(c, fmt.Sprintf("failed to read screenshot: %v", err))
		return
	}

	if err := h.desk.AttachScreenshot(raw); err != nil {
		DomainError(c, err)
		return
	}

	Success(c, deskView(h.desk.State()))
}

// ClearScreenshot removes the draft screenshot
// DELETE /api/v1/draft/screenshot
func (h *Handler) ClearScreenshot(c *gin.Context) {
	if err := h.desk.ClearScreenshot(); err != nil {
		DomainError(c, err)
		return
	}
	Success(c, deskView(h.desk.State()))
}

// SubmitDraft submits the draft and waits for the remote write
// POST /api/v1/draft/submit
func (h *Handler) SubmitDraft(c *gin.Context) {
	if err := h.desk.Submit(c.Request.Context()); err != nil {
		DomainError(c, err)
		return
	}

	Created(c, deskView(h.desk.State()))
}

// ListTrades returns the local trade view, newest first
// GET /api/v1/trades
func (h *Handler) ListTrades(c *gin.Context) {
	Success(c, tradeViews(h.trades.Records()))
}

// DeleteTrade removes a confirmed trade
// DELETE /api/v1/trades/:id
func (h *Handler) DeleteTrade(c *gin.Context) {
	if err := h.trades.Remove(c.Request.Context(), c.Param("id")); err != nil {
		DomainError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, Response{Code: 0, Message: "accepted"})
}

// RetryPending re-sends a failed optimistic trade
// POST /api/v1/pending/:key/retry
func (h *Handler) RetryPending(c *gin.Context) {
	write, err := h.trades.Retry(c.Request.Context(), c.Param("key"))
	if err != nil {
		DomainError(c, err)
		return
	}
	if err := write.Wait(c.Request.Context()); err != nil {
		DomainError(c, err)
		return
	}

	Success(c, tradeViews(h.trades.Records()))
}

// DiscardPending drops a failed optimistic trade
// DELETE /api/v1/pending/:key
func (h *Handler) DiscardPending(c *gin.Context) {
	if err := h.trades.Discard(c.Param("key")); err != nil {
		DomainError(c, err)
		return
	}

	Success(c, tradeViews(h.trades.Records()))
}

// GetSettings returns the account settings
// GET /api/v1/settings
func (h *Handler) GetSettings(c *gin.Context) {
	Success(c, settingsView(h.settings.Current()))
}

// UpdateSettingsRequest sets the starting capital
type UpdateSettingsRequest struct {
	StartingCapital string `json:"starting_capital" binding:"required"`
}

// UpdateSettings sets the starting capital and waits for the remote write.
// A failed write keeps the new value locally.
// PUT /api/v1/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	capital, err := decimal.NewFromString(req.StartingCapital)
	if err != nil {
		BadRequest(c, "starting_capital must be a number")
		return
	}

	write, err := h.settings.Update(c.Request.Context(), capital)
	if err != nil {
		DomainError(c, err)
		return
	}
	if err := write.Wait(c.Request.Context()); err != nil {
		DomainError(c, err)
		return
	}

	Success(c, settingsView(h.settings.Current()))
}

// GetStats returns the dashboard summary
// GET /api/v1/stats
func (h *Handler) GetStats(c *gin.Context) {
	Success(c, summaryView(h.dashboard.Summary()))
}
