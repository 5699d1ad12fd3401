package router

import (
	"time"

	"github.com/votranphi/heartistry-user-api/internal/config"
	"github.com/votranphi/heartistry-user-api/internal/handler"
	"github.com/votranphi/heartistry-user-api/internal/mail"
	"github.com/votranphi/heartistry-user-api/internal/middleware"
	"github.com/votranphi/heartistry-user-api/internal/service"
	"github.com/votranphi/heartistry-user-api/internal/store"
	"github.com/votranphi/heartistry-user-api/internal/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires stores, services, guards and routes onto a Gin engine.
func Setup(cfg *config.Config, db *gorm.DB, mailer mail.Sender) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLog())
	r.Use(cors.Default())

	users := store.NewUserStore(db)
	otps := store.NewOtpStore(db)
	audit := store.NewAuditStore(db)
	issuer := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireHours)

	identity := service.NewIdentity(
		users, otps, audit, mailer, issuer,
		time.Duration(cfg.Otp.TTLSeconds)*time.Second,
		cfg.Security.BcryptCost,
	)

	authHandler := handler.NewAuthHandler(identity)
	userHandler := handler.NewUserHandler(identity)
	auditHandler := handler.NewAuditHandler(identity)

	authGuard := middleware.Auth(issuer, users)
	adminGuard := middleware.Admin()

	r.POST("/auth/token", authHandler.Token)

	usersGroup := r.Group("/users")
	usersGroup.POST("/signup", userHandler.Signup)
	usersGroup.POST("/otp_verification", userHandler.OtpVerification)
	usersGroup.POST("/password_recovery", userHandler.PasswordRecovery)

	// authenticated self-service
	usersGroup.GET("/me", authGuard, userHandler.Me)
	usersGroup.PATCH("/me", authGuard, userHandler.UpdateMe)
	usersGroup.POST("/password", authGuard, userHandler.UpdatePassword)
	usersGroup.POST("/avatar", authGuard, userHandler.UpdateAvatar)

	// admin surface: authentication always runs before authorization
	usersGroup.GET("/all", authGuard, adminGuard, userHandler.All)
	usersGroup.GET("/all/pagination", authGuard, adminGuard, userHandler.Pagination)
	usersGroup.POST("/add", authGuard, adminGuard, userHandler.AdminAdd)
	usersGroup.PATCH("/:id", authGuard, adminGuard, userHandler.AdminUpdate)
	usersGroup.DELETE("/:id", authGuard, adminGuard, userHandler.AdminDelete)

	auditGroup := r.Group("/audit-logs", authGuard, adminGuard)
	auditGroup.GET("/all", auditHandler.All)
	auditGroup.GET("/export/xlsx", auditHandler.ExportXLSX)

	return r
}
