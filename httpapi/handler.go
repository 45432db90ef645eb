package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/auth/jwt"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/ingest"
	"github.com/kbukum/scribe/intake"
	"github.com/kbukum/scribe/ledger"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/server/endpoint"
	"github.com/kbukum/scribe/server/middleware"
	"github.com/kbukum/scribe/supplier"
)

// CallbackHandler applies supplier webhooks.
type CallbackHandler interface {
	HandleCallback(ctx context.Context, cb ingest.Callback) error
}

// Preparer prepares jobs.
type Preparer interface {
	Prepare(ctx context.Context, req intake.Request) (intake.Response, error)
}

// QueueProcessor works the pull fallback.
type QueueProcessor interface {
	ProcessOne(ctx context.Context, userID string) (queue.Result, error)
}

// UsageReader answers usage queries.
type UsageReader interface {
	Usage(ctx context.Context, userID, tier string) (ledger.Usage, error)
}

// Deps are the collaborators of Handler. Queue may be nil when the pull
// fallback is disabled; ProcessLimit may be nil to skip rate limiting.
type Deps struct {
	Suppliers    *supplier.Set
	Callbacks    CallbackHandler
	Intake       Preparer
	Queue        QueueProcessor
	Usage        UsageReader
	Auth         gin.HandlerFunc
	ProcessLimit gin.HandlerFunc
	Health       endpoint.HealthChecker
	ServiceName  string
	Version      string
	Log          *logger.Logger
}

// Handler serves the API.
type Handler struct {
	deps Deps
	log  *logger.Logger
}

// New creates a Handler.
func New(deps Deps) *Handler {
	return &Handler{deps: deps, log: deps.Log.WithComponent("httpapi")}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", endpoint.Health(h.deps.ServiceName, h.deps.Version, h.deps.Health))
	r.POST("/callback/:provider", h.callback)

	authed := r.Group("", h.deps.Auth)
	authed.POST("/jobs/prepare", middleware.RequireRole(jwt.RoleIntake), h.prepare)
	authed.GET("/usage", h.usage)
	if h.deps.Queue != nil {
		chain := []gin.HandlerFunc{}
		if h.deps.ProcessLimit != nil {
			chain = append(chain, h.deps.ProcessLimit)
		}
		authed.POST("/process-one", append(chain, h.processOne)...)
	}
}

// callback always answers definitely: {ok:true} for applied or skipped
// deliveries, an error body otherwise.
func (h *Handler) callback(c *gin.Context) {
	provider := c.Param("provider")
	body, err := c.GetRawData()
	if err != nil {
		server.Fail(c, apperrors.InvalidInput("body", err.Error()))
		return
	}

	cb := ingest.Callback{
		Supplier: provider,
		JobID:    c.Query(supplier.QueryJobID),
		Body:     body,
		Token:    c.Query(supplier.QuerySig),
	}
	if sp, ok := h.deps.Suppliers.Get(provider); ok {
		cb.Signature = c.GetHeader(sp.SignatureHeader())
	}

	if err := h.deps.Callbacks.HandleCallback(c.Request.Context(), cb); err != nil {
		server.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) prepare(c *gin.Context) {
	var req intake.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	resp, err := h.deps.Intake.Prepare(c.Request.Context(), req)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, resp)
}

func (h *Handler) processOne(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	res, err := h.deps.Queue.ProcessOne(c.Request.Context(), p.UserID)
	if err != nil {
		h.log.Warn("Process-one failed", logger.Fields(logger.FieldUserID, p.UserID, logger.FieldError, err.Error()))
		server.Fail(c, err)
		return
	}
	server.OK(c, res)
}

func (h *Handler) usage(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	u, err := h.deps.Usage.Usage(c.Request.Context(), p.UserID, p.Tier)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, u)
}
