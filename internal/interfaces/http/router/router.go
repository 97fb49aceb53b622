package router

import (
	"net/http"

	"github.com/channelsync/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers groups the handlers the router wires up
type Handlers struct {
	Queue       *handler.QueueHandler
	SyncRequest *handler.SyncRequestHandler
	Reconcile   *handler.ReconcileHandler
	Import      *handler.ImportHandler
}

// Setup registers all routes on the engine under /api/v1
func Setup(engine *gin.Engine, h Handlers) {
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")

	queue := api.Group("/queue")
	{
		queue.GET("/stats", h.Queue.GetStats)
		queue.GET("/tasks", h.Queue.ListTasks)
		queue.POST("/tasks/:id/retry", h.Queue.RetryTask)
	}

	api.POST("/sync-requests", h.SyncRequest.Create)

	api.POST("/reconcile/:integrationID", h.Reconcile.Run)

	importsGroup := api.Group("/imports")
	{
		importsGroup.POST("", h.Import.CreateRun)
		importsGroup.GET("/:id", h.Import.GetRun)
		importsGroup.POST("/:id/products", h.Import.SubmitProducts)
		importsGroup.POST("/:id/select-values", h.Import.SubmitSelectValues)
	}
}
