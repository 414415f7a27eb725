package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/common"
	"github.com/careerpilot/careerpilot/internal/config"
	"github.com/careerpilot/careerpilot/internal/httpapi/handlers"
	"github.com/careerpilot/careerpilot/internal/httpapi/middleware"
)

func NewRouter(db *gorm.DB, cfg config.Config, co handlers.Collaborators) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, co)

	r.GET("/ping", h.Ping)

	// users
	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)

	// conversation channel (token rides the query string)
	r.GET("/ws", h.HandleWS)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// chat pages
	authGroup.GET("/chat/pages", h.ListPages)
	authGroup.GET("/chat/pages/:page_id/messages", h.ListPageMessages)

	// documents
	authGroup.POST("/documents", h.UploadDocument)
	authGroup.GET("/documents", h.ListDocuments)
	authGroup.DELETE("/documents/:id", h.DeleteDocument)

	// cover letters
	authGroup.GET("/letters", h.ListLetters)
	authGroup.POST("/letters/jobs", h.CreateLetterJob)
	authGroup.GET("/letters/jobs/:job_id", h.GetLetterJob)

	return r
}
