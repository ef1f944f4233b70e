package v1

import (
	"github.com/gin-gonic/gin"

	"ncfledger/internal/app"
	"ncfledger/internal/infrastructure/http/v1/handlers"
)

// registerOwnerRoutes mounts every owner-scoped resource under
// /owners/:ownerId.
func registerOwnerRoutes(rg *gin.RouterGroup, svc *app.Services) {
	base := handlers.NewBaseHandler()

	owners := handlers.NewOwnerHandler(base, svc.Owners)
	rg.POST("/owners", owners.Create)
	rg.GET("/owners", owners.List)

	owner := rg.Group("/owners/:ownerId")
	owner.GET("", owners.Get)
	owner.PUT("", owners.Update)

	sequences := handlers.NewSequenceHandler(base, svc.Sequences, svc.Ledger)
	seq := owner.Group("/sequences")
	{
		seq.POST("", sequences.Create)
		seq.GET("", sequences.List)
		seq.POST("/preview", sequences.Preview)
		seq.GET("/:id", sequences.Get)
		seq.GET("/:id/next", sequences.Next)
		seq.PUT("/:id/state", sequences.SetState)
		seq.GET("/:id/assignments", sequences.Assignments)
	}

	documents := handlers.NewDocumentHandler(base, svc.Documents)
	doc := owner.Group("/documents")
	{
		doc.POST("", documents.Create)
		doc.GET("", documents.List)
		doc.GET("/:id", documents.Get)
		doc.DELETE("/:id", documents.Delete)
		doc.POST("/:id/post", documents.Post)
		doc.POST("/:id/ncf", documents.AssignNCF)
	}

	ledger := handlers.NewAssignmentHandler(base, svc.Ledger)
	owner.GET("/assignments", ledger.Window)
	owner.GET("/assignments/:number", ledger.ByNumber)

	mon := handlers.NewMonitorHandler(base, svc.Monitor, svc.Owners)
	owner.GET("/alerts", mon.Alerts)

	reports := handlers.NewReportHandler(base, svc.Reports)
	owner.GET("/reports/:kind", reports.Export)
}

// registerAdminRoutes mounts operator endpoints.
func registerAdminRoutes(rg *gin.RouterGroup, svc *app.Services) {
	mon := handlers.NewMonitorHandler(handlers.NewBaseHandler(), svc.Monitor, svc.Owners)
	admin := rg.Group("/admin")
	admin.POST("/sweep", mon.Sweep)
}
