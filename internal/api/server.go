package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/vietanh2810/campreg-api/docs"
	v1 "github.com/vietanh2810/campreg-api/internal/api/handler/v1"
	"github.com/vietanh2810/campreg-api/internal/api/middleware"
	"github.com/vietanh2810/campreg-api/internal/config"
	"github.com/vietanh2810/campreg-api/internal/notify"
	"github.com/vietanh2810/campreg-api/internal/pkg/jwthelper"
	"github.com/vietanh2810/campreg-api/internal/repository"
	"github.com/vietanh2810/campreg-api/internal/repository/dao"
	"github.com/vietanh2810/campreg-api/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	// Registrations is shared with the reminder scheduler and closed on
	// shutdown to flush pending note drafts.
	Registrations *service.RegistrationService
}

func NewServer(conf *config.AppConfig, db *gorm.DB, notifier notify.Notifier) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	eventRepo := repository.NewEventRepository(dao.NewEventDAO(db))
	registrationRepo := repository.NewRegistrationRepository(dao.NewRegistrationDAO(db))

	eventHandler := s.initEventHandler(eventRepo)
	registrationHandler := s.initRegistrationHandler(eventRepo, registrationRepo, notifier)
	s.MountHandlers(eventHandler, registrationHandler)

	return s
}

func (s *Server) initEventHandler(repo *repository.EventRepository) *v1.EventHandler {
	svc := service.NewEventService(repo)
	handler := v1.NewEventHandler(svc)

	return handler
}

func (s *Server) initRegistrationHandler(events *repository.EventRepository, repo *repository.RegistrationRepository, notifier notify.Notifier) *v1.RegistrationHandler {
	svc := service.NewRegistrationService(events, repo, notifier,
		service.WithNoteDebounce(s.Config.Engine.NoteDebounce),
	)
	s.Registrations = svc
	handler := v1.NewRegistrationHandler(svc)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(eventHandler *v1.EventHandler, registrationHandler *v1.RegistrationHandler) {
	const basePath = "/api/v1"

	authenticated := middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT()
	organizerOnly := middleware.RequireRole(jwthelper.RoleOrganizer)
	anyRole := middleware.RequireRole(jwthelper.RoleOrganizer, jwthelper.RoleParent)

	public := s.Router.Group(basePath, authenticated, anyRole)
	{
		public.GET("/events/:eventID", eventHandler.HandleGetEvent)
		public.POST("/events/:eventID/quote", eventHandler.HandleQuote)
		public.POST("/events/:eventID/registrations", registrationHandler.HandleRegister)
		public.GET("/registrations/:registrationID", registrationHandler.HandleGetRegistration)
		public.PUT("/registrations/:registrationID/parent-note", registrationHandler.HandleSubmitParentNote)
	}

	admin := s.Router.Group(basePath, authenticated, organizerOnly)
	{
		admin.POST("/events", eventHandler.HandleCreateEvent)
		admin.PUT("/events/:eventID/pricing", eventHandler.HandleUpdatePricing)
		admin.GET("/events/:eventID/registrations", registrationHandler.HandleListRegistrations)

		admin.GET("/registrations/:registrationID/history", registrationHandler.HandleGetHistory)
		admin.POST("/registrations/:registrationID/payments", registrationHandler.HandleRecordPayment)
		admin.POST("/registrations/:registrationID/cancel", registrationHandler.HandleCancel)
		admin.POST("/registrations/:registrationID/restore", registrationHandler.HandleRestore)
		admin.POST("/registrations/:registrationID/promote", registrationHandler.HandlePromote)
		admin.POST("/registrations/:registrationID/approve", registrationHandler.HandleApprove)
		admin.PUT("/registrations/:registrationID/internal-note", registrationHandler.HandleUpdateInternalNote)
		admin.PUT("/registrations/:registrationID/internal-note/draft", registrationHandler.HandleQueueInternalNote)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Camp registration API"
	docs.SwaggerInfo.Description = "Registration intake, pricing and payment ledger for camps."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
