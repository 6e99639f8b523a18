package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scrape-bot/internal/export"
	"scrape-bot/internal/platform"
	"scrape-bot/internal/scraper"
)

// BatchProcessor is the aggregator boundary the API drives.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, userID int64, p platform.Platform, rawText string) (*scraper.BatchResult, error)
}

// LoginManager is the session-manager boundary for the privileged login
// conversation.
type LoginManager interface {
	SubmitPhone(ctx context.Context, userID int64, phone string) error
	SubmitCode(ctx context.Context, userID int64, code string) (needsPassword bool, err error)
	SubmitPassword(ctx context.Context, userID int64, password string) error
}

// API handles HTTP control endpoints.
type API struct {
	batches BatchProcessor
	logins  LoginManager
	log     *zap.Logger
}

// NewAPI creates a new API handler.
func NewAPI(batches BatchProcessor, logins LoginManager, log *zap.Logger) *API {
	return &API{
		batches: batches,
		logins:  logins,
		log:     log.Named("api"),
	}
}

// ScrapeRequest is the request body for the scrape endpoint: one platform
// selection token and one newline-separated URL block.
type ScrapeRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Platform string `json:"platform" binding:"required"`
	URLs     string `json:"urls" binding:"required"`
}

// ScrapeResponse is the response for the scrape endpoint. Data carries the
// rendered CSV so the chat shell can attach it under Filename.
type ScrapeResponse struct {
	Status      string   `json:"status"`
	Platform    string   `json:"platform,omitempty"`
	Processed   int      `json:"processed"`
	InvalidURLs []string `json:"invalid_urls,omitempty"`
	Filename    string   `json:"filename,omitempty"`
	Data        string   `json:"data,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// LoginRequest is the request body for the three login steps.
type LoginRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Phone    string `json:"phone,omitempty"`
	Code     string `json:"code,omitempty"`
	Password string `json:"password,omitempty"`
}

// LoginResponse is the response for the login endpoints.
type LoginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// PlatformsResponse lists the selectable platforms.
type PlatformsResponse struct {
	Platforms []string `json:"platforms"`
}

// Platforms returns the platform menu the chat shell renders.
func (a *API) Platforms(c *gin.Context) {
	names := make([]string, 0, len(platform.All()))
	for _, p := range platform.All() {
		names = append(names, string(p))
	}
	c.JSON(http.StatusOK, PlatformsResponse{Platforms: names})
}

// Scrape runs one batch and returns the CSV artifact.
func (a *API) Scrape(c *gin.Context) {
	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ScrapeResponse{
			Status:  "error",
			Message: "invalid request: " + err.Error(),
		})
		return
	}

	p, err := platform.Parse(req.Platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, ScrapeResponse{
			Status:  "error",
			Message: "Unknown platform selected",
		})
		return
	}

	a.log.Info("scrape request",
		zap.Int64("user_id", req.UserID),
		zap.String("platform", req.Platform))

	batch, err := a.batches.ProcessBatch(c.Request.Context(), req.UserID, p, req.URLs)
	switch {
	case errors.Is(err, scraper.ErrNoValidURLs):
		c.JSON(http.StatusBadRequest, ScrapeResponse{
			Status:      "error",
			Platform:    req.Platform,
			InvalidURLs: batch.InvalidLines,
			Message:     "No valid URLs provided.",
		})
		return
	case errors.Is(err, scraper.ErrLoginRequired):
		c.JSON(http.StatusUnauthorized, ScrapeResponse{
			Status:   "error",
			Platform: req.Platform,
			Message:  "You must login first to scrape private channels.",
		})
		return
	case errors.Is(err, scraper.ErrSessionBusy):
		c.JSON(http.StatusConflict, ScrapeResponse{
			Status:   "error",
			Platform: req.Platform,
			Message:  "Another scrape is already running for this user.",
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, ScrapeResponse{
			Status:   "error",
			Platform: req.Platform,
			Message:  err.Error(),
		})
		return
	}

	if !batch.HasData() {
		c.JSON(http.StatusOK, ScrapeResponse{
			Status:      "empty",
			Platform:    req.Platform,
			Processed:   len(batch.ValidURLs),
			InvalidURLs: batch.InvalidLines,
			Message:     "No data scraped.",
		})
		return
	}

	c.JSON(http.StatusOK, ScrapeResponse{
		Status:      "ok",
		Platform:    req.Platform,
		Processed:   len(batch.ValidURLs),
		InvalidURLs: batch.InvalidLines,
		Filename:    export.Filename(p),
		Data:        export.CSV(batch.Results),
	})
}

// LoginPhone starts the privileged login flow.
func (a *API) LoginPhone(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Phone == "" {
		c.JSON(http.StatusBadRequest, LoginResponse{Status: "error", Message: "phone is required"})
		return
	}

	if err := a.logins.SubmitPhone(c.Request.Context(), req.UserID, req.Phone); err != nil {
		// Retryable: the user may resubmit a corrected phone number.
		c.JSON(http.StatusBadGateway, LoginResponse{
			Status:  "error",
			Message: "Failed to send code: " + err.Error() + ". Please enter a valid phone number.",
		})
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Status: "code_sent", Message: "Code sent! Please enter the code."})
}

// LoginCode verifies the login code.
func (a *API) LoginCode(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.JSON(http.StatusBadRequest, LoginResponse{Status: "error", Message: "code is required"})
		return
	}

	needsPassword, err := a.logins.SubmitCode(c.Request.Context(), req.UserID, req.Code)
	if err != nil {
		// Unrecoverable for this session: it was abandoned, restart needed.
		c.JSON(http.StatusUnauthorized, LoginResponse{
			Status:  "error",
			Message: "Sign in failed: " + err.Error() + ". Please restart the login.",
		})
		return
	}
	if needsPassword {
		c.JSON(http.StatusOK, LoginResponse{
			Status:  "password_required",
			Message: "Two-step verification enabled. Please enter the password.",
		})
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Status: "authorized", Message: "Logged in!"})
}

// LoginPassword verifies the second-factor password.
func (a *API) LoginPassword(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		c.JSON(http.StatusBadRequest, LoginResponse{Status: "error", Message: "password is required"})
		return
	}

	if err := a.logins.SubmitPassword(c.Request.Context(), req.UserID, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, LoginResponse{
			Status:  "error",
			Message: "Two-step verification failed: " + err.Error() + ". Please restart the login.",
		})
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Status: "authorized", Message: "Logged in!"})
}
