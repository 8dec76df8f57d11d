package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"shareledger/internal/ledger"
	"shareledger/internal/model"
)

// accountHeader carries the verified caller account. Transport-level
// authentication happens upstream; the API trusts this header.
const accountHeader = "X-Ledger-Account"

// LedgerService is the subset of the ledger the HTTP API needs.
type LedgerService interface {
	AddFile(owner, uri string) (*model.ContentReference, error)
	Grant(owner, grantee string) error
	Revoke(owner, grantee string) error
	Display(requester, owner string) ([]string, error)
	SharedDisplay(viewer string) (*ledger.SharedView, error)
	ListGrantees(owner string) ([]*model.AccessGrant, error)
	History(account string) ([]*model.AccessLogEntry, error)
}

// Handler serves the ledger REST API.
type Handler struct {
	service LedgerService
	logger  *slog.Logger
	metrics *Metrics
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(service LedgerService, logger *slog.Logger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger, metrics: metrics}
}

// Register mounts the API routes on the router.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/files", h.AddFile)
	api.GET("/files/:owner", h.DisplayFiles)
	api.GET("/shared", h.SharedDisplay)
	api.POST("/grants", h.Grant)
	api.DELETE("/grants/:grantee", h.Revoke)
	api.GET("/grants", h.ListGrantees)
	api.GET("/history", h.History)
}

type addFileRequest struct {
	URI string `json:"uri"`
}

type addFileResponse struct {
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	URI     string `json:"uri"`
	AddedAt string `json:"added_at"`
}

type grantRequest struct {
	Grantee string `json:"grantee"`
}

type filesResponse struct {
	Owner string   `json:"owner"`
	URIs  []string `json:"uris"`
}

type sharedResponse struct {
	URIs         []string `json:"uris"`
	Partial      bool     `json:"partial"`
	FailedOwners []string `json:"failed_owners,omitempty"`
}

type granteeItem struct {
	Grantee   string `json:"grantee"`
	Active    bool   `json:"active"`
	GrantedAt string `json:"granted_at"`
}

type historyItem struct {
	FileOwner  string `json:"file_owner"`
	FileURL    string `json:"file_url,omitempty"`
	GrantedTo  string `json:"granted_to"`
	OccurredAt string `json:"occurred_at"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AddFile registers a content reference for the caller account.
func (h *Handler) AddFile(c *gin.Context) {
	owner, ok := callerAccount(c)
	if !ok {
		return
	}

	var req addFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
		return
	}

	ref, err := h.service.AddFile(owner, req.URI)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, addFileResponse{
		ID:      ref.ID,
		Owner:   ref.Owner,
		URI:     ref.URI,
		AddedAt: ref.AddedAt.UTC().Format(time.RFC3339),
	})
}

// Grant gives the requested grantee access to the caller's files.
func (h *Handler) Grant(c *gin.Context) {
	owner, ok := callerAccount(c)
	if !ok {
		return
	}

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload")
		return
	}

	if err := h.service.Grant(owner, req.Grantee); err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Revoke withdraws the grantee's access to the caller's files.
func (h *Handler) Revoke(c *gin.Context) {
	owner, ok := callerAccount(c)
	if !ok {
		return
	}

	if err := h.service.Revoke(owner, c.Param("grantee")); err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DisplayFiles returns the owner's file URIs as seen by the caller.
func (h *Handler) DisplayFiles(c *gin.Context) {
	requester, ok := callerAccount(c)
	if !ok {
		return
	}

	uris, err := h.service.Display(requester, c.Param("owner"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if uris == nil {
		uris = []string{}
	}

	c.JSON(http.StatusOK, filesResponse{Owner: c.Param("owner"), URIs: uris})
}

// SharedDisplay returns every file shared with the caller.
func (h *Handler) SharedDisplay(c *gin.Context) {
	viewer, ok := callerAccount(c)
	if !ok {
		return
	}

	view, err := h.service.SharedDisplay(viewer)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if view.Partial && h.metrics != nil {
		h.metrics.PartialResults.Inc()
	}

	resp := sharedResponse{
		URIs:         view.URIs,
		Partial:      view.Partial,
		FailedOwners: view.FailedOwners,
	}
	if resp.URIs == nil {
		resp.URIs = []string{}
	}
	c.JSON(http.StatusOK, resp)
}

// ListGrantees returns every grant the caller has made, active or revoked.
func (h *Handler) ListGrantees(c *gin.Context) {
	owner, ok := callerAccount(c)
	if !ok {
		return
	}

	grants, err := h.service.ListGrantees(owner)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	items := make([]granteeItem, 0, len(grants))
	for _, g := range grants {
		items = append(items, granteeItem{
			Grantee:   g.Grantee,
			Active:    g.Active,
			GrantedAt: g.GrantedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, items)
}

// History returns the audit entries involving the caller account.
func (h *Handler) History(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}

	entries, err := h.service.History(account)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			FileOwner:  e.FileOwner,
			FileURL:    e.FileURL,
			GrantedTo:  e.GrantedTo,
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, items)
}

// callerAccount extracts the caller account from the request header.
// Writes a 401 response and returns false when the header is missing.
func callerAccount(c *gin.Context) (string, bool) {
	account := strings.TrimSpace(c.GetHeader(accountHeader))
	if account == "" {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+accountHeader+" header")
		return "", false
	}
	return account, true
}

// writeServiceError maps ledger errors to HTTP statuses.
func (h *Handler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAddress):
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
	case errors.Is(err, ledger.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, ledger.ErrSelfGrant):
		writeError(c, http.StatusBadRequest, "SELF_GRANT", err.Error())
	case errors.Is(err, ledger.ErrAccessDenied):
		if h.metrics != nil {
			h.metrics.DeniedReads.Inc()
		}
		writeError(c, http.StatusForbidden, "ACCESS_DENIED", err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message})
}
