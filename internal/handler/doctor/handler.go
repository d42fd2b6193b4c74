package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anandtech09/reception-prime-queue/internal/engine"
	"github.com/Anandtech09/reception-prime-queue/internal/handler"
	"github.com/Anandtech09/reception-prime-queue/internal/model"
)

type Handler struct {
	engine *engine.Engine
}

func NewHandler(engine *engine.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) ListDoctors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": h.engine.Doctors()})
}

func (h *Handler) GetDoctor(c *gin.Context) {
	doctor, err := h.engine.Doctor(c.Param("id"))
	if err != nil {
		c.JSON(handler.StatusOf(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": doctor})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req model.UpdateDoctorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	res, err := h.engine.UpdateDoctorStatus(c.Param("id"), req.Status, req.BreakDurationMinutes)
	if err != nil {
		c.JSON(handler.StatusOf(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": res.Message, "data": res})
}

// CallNext asks the engine for the doctor's next patient. An empty queue is
// not an error; the dashboard shows the message as a transient notice.
func (h *Handler) CallNext(c *gin.Context) {
	res, err := h.engine.CallNextPatient(c.Param("id"))
	if err != nil {
		c.JSON(handler.StatusOf(err), gin.H{"status": "error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": res.Message, "data": res})
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id", h.GetDoctor)
		doctors.PATCH("/:id/status", h.UpdateStatus)
		doctors.POST("/:id/call-next", h.CallNext)
	}
}
