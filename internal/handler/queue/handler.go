package queue

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anandtech09/reception-prime-queue/internal/engine"
	"github.com/Anandtech09/reception-prime-queue/internal/handler"
	"github.com/Anandtech09/reception-prime-queue/internal/model"
	"github.com/Anandtech09/reception-prime-queue/internal/policy"
)

type Handler struct {
	engine *engine.Engine
}

func NewHandler(engine *engine.Engine) *Handler {
	return &Handler{engine: engine}
}

// tokenView decorates a token with its shared-queue rank for the dashboard.
type tokenView struct {
	model.Token
	QueuePosition int `json:"queue_position,omitempty"`
}

func (h *Handler) GenerateToken(c *gin.Context) {
	var req model.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	res, err := h.engine.GenerateToken(req)
	if err != nil {
		c.JSON(handler.StatusOf(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": res.Message, "data": res})
}

func (h *Handler) ListTokens(c *gin.Context) {
	tokens := h.engine.Tokens()

	views := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		v := tokenView{Token: t}
		if t.Status == model.TokenStatusWaiting && !t.IsSpecificDoctor {
			v.QueuePosition = policy.QueuePosition(t, tokens)
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": views})
}

func (h *Handler) ListHaltedTokens(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": h.engine.HaltedTokens()})
}

func (h *Handler) QueueStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": h.engine.Stats()})
}

// NextDoctor suggests the least busy active doctor for a service type, the
// hint shown when the receptionist offers a specific-doctor token.
func (h *Handler) NextDoctor(c *gin.Context) {
	st := model.ServiceType(c.Query("service_type"))

	doctor, err := h.engine.LeastBusyDoctor(st)
	if err != nil {
		c.JSON(handler.StatusOf(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": doctor})
}

func (h *Handler) MarkVisited(c *gin.Context) {
	res, err := h.engine.MarkPatientVisited(c.Param("id"))
	if err != nil {
		c.JSON(handler.StatusOf(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": res.Message, "data": res})
}

func (h *Handler) MarkHalted(c *gin.Context) {
	res, err := h.engine.MarkPatientHalted(c.Param("id"))
	if err != nil {
		c.JSON(handler.StatusOf(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": res.Message, "data": res})
}

func (h *Handler) Requeue(c *gin.Context) {
	var req model.RequeueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
	}
	if req.Position == "" {
		req.Position = model.PlacementBack
	}

	res, err := h.engine.RequeuePatient(c.Param("id"), req.DoctorID, req.Position)
	if err != nil {
		c.JSON(handler.StatusOf(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": res.Message, "data": res})
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tokens := r.Group("/tokens")
	{
		tokens.POST("", h.GenerateToken)
		tokens.GET("", h.ListTokens)
		tokens.GET("/halted", h.ListHaltedTokens)
		tokens.POST("/:id/visited", h.MarkVisited)
		tokens.POST("/:id/halted", h.MarkHalted)
		tokens.POST("/:id/requeue", h.Requeue)
	}

	queue := r.Group("/queue")
	{
		queue.GET("/stats", h.QueueStats)
		queue.GET("/next-doctor", h.NextDoctor)
	}
}
