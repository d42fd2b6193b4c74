package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anandtech09/reception-prime-queue/internal/model"
)

// Handler contains dependencies for all handlers
type Handler struct {
}

// NewHandler creates a new handler instance
func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now(),
	})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now(),
	})
}

func (h *Handler) MetricsHandler(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}

// RegisterValidations installs the domain enum rules on gin's binding
// validator so request DTOs can carry them as tags.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("servicetype", func(fl validator.FieldLevel) bool {
		return model.ServiceType(fl.Field().String()).Valid()
	})
	v.RegisterValidation("doctorstatus", func(fl validator.FieldLevel) bool {
		return model.DoctorStatus(fl.Field().String()).Valid()
	})
}
