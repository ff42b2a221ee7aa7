// File: /routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"eventhub-api/config"
	"eventhub-api/controllers"
	"eventhub-api/middleware"
	"eventhub-api/permissions"
	"eventhub-api/repositories"
	"eventhub-api/services"
	"eventhub-api/validation"
)

// Services is everything the handlers depend on.
type Services struct {
	Users           *services.UserService
	Events          *services.EventService
	Comments        *services.CommentService
	Relations       *services.RelationService
	Recommendations *services.RecommendationService
	Activities      *repositories.ActivityRepository
	Enforcer        *permissions.Enforcer
}

// NewServices wires the service layer over db. The geocoder and mailer are
// passed in so tests can substitute fakes.
func NewServices(db *gorm.DB, cfg *config.Config, geocoder services.Geocoder, mailer services.Mailer) (*Services, error) {
	enforcer, err := permissions.NewEnforcer()
	if err != nil {
		return nil, err
	}

	presenter := services.NewPresenter(db)
	tokens := services.NewTokenService(cfg.Auth)
	locations := services.NewLocationService(geocoder)

	return &Services{
		Users:           services.NewUserService(db, presenter, mailer, tokens, cfg.Auth, cfg.Validation.StrictBirthYear),
		Events:          services.NewEventService(db, locations, presenter),
		Comments:        services.NewCommentService(db, presenter),
		Relations:       services.NewRelationService(db, presenter),
		Recommendations: services.NewRecommendationService(db, presenter, cfg.Recommendations.Limit),
		Activities:      repositories.NewActivityRepository(db),
		Enforcer:        enforcer,
	}, nil
}

// SetupCORS wraps the whole engine so preflight requests are answered before
// routing.
func SetupCORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// NewRouter builds the engine with the middleware chain and every route.
// Background goroutines started here stop when done is closed.
func NewRouter(cfg *config.Config, s *Services, done <-chan struct{}) *gin.Engine {
	validation.Register()

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.SecurityHeaders(),
	)
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, done))
	}
	r.Use(middleware.ValidateJSON(), middleware.ErrorHandler())

	SetupRoutes(r, cfg, s)
	return r
}

func SetupRoutes(r *gin.Engine, cfg *config.Config, s *Services) {
	pageSize := cfg.Pagination.PageSize

	authController := controllers.NewAuthController(s.Users, s.Enforcer)
	userController := controllers.NewUserController(s.Users, s.Relations, s.Recommendations, s.Enforcer, pageSize)
	eventController := controllers.NewEventController(s.Events, s.Relations, s.Enforcer, pageSize)
	commentController := controllers.NewCommentController(s.Comments, s.Relations, s.Enforcer, pageSize)
	activityController := controllers.NewActivityController(s.Activities, s.Relations, s.Enforcer)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(s.Users))

	auth := v1.Group("/auth/token")
	{
		login := []gin.HandlerFunc{authController.Login}
		if cfg.RateLimit.Enabled && cfg.RateLimit.LoginPerMinute > 0 {
			login = append([]gin.HandlerFunc{middleware.LoginLimit(cfg.RateLimit.LoginPerMinute)}, login...)
		}
		auth.POST("/login/", login...)
		auth.POST("/logout/", authController.Logout)
	}

	activities := v1.Group("/activities")
	{
		activities.GET("/", activityController.GetActivities)
		activities.GET("/:id/", activityController.GetActivity)
		activities.POST("/:id/favorite/", activityController.AddFavorite)
		activities.DELETE("/:id/favorite/", activityController.RemoveFavorite)
	}

	events := v1.Group("/events")
	{
		events.GET("/", eventController.GetEvents)
		events.POST("/", eventController.CreateEvent)
		events.GET("/:id/", eventController.GetEvent)
		events.PUT("/:id/", eventController.UpdateEvent)
		events.PATCH("/:id/", eventController.UpdateEvent)
		events.DELETE("/:id/", eventController.DeleteEvent)
		events.POST("/:id/favorite/", eventController.AddFavorite)
		events.DELETE("/:id/favorite/", eventController.RemoveFavorite)
		events.POST("/:id/participate/", eventController.Participate)
		events.DELETE("/:id/participate/", eventController.Leave)

		events.GET("/:id/comments/", commentController.GetComments)
		events.POST("/:id/comments/", commentController.CreateComment)
		events.GET("/:id/comments/:comment_id/", commentController.GetComment)
		events.PUT("/:id/comments/:comment_id/", commentController.UpdateComment)
		events.PATCH("/:id/comments/:comment_id/", commentController.UpdateComment)
		events.DELETE("/:id/comments/:comment_id/", commentController.DeleteComment)
		events.POST("/:id/comments/:comment_id/like/", commentController.Like)
		events.DELETE("/:id/comments/:comment_id/like/", commentController.Unlike)
	}

	comments := v1.Group("/comments")
	{
		comments.POST("/:event_id/:comment_id/like/", commentController.Like)
		comments.DELETE("/:event_id/:comment_id/like/", commentController.Unlike)
	}

	users := v1.Group("/users")
	{
		users.GET("/", userController.GetUsers)
		users.POST("/", userController.Register)
		users.POST("/activation/", userController.Activate)
		users.GET("/me/", userController.GetMe)
		users.PUT("/me/", userController.UpdateMe)
		users.PATCH("/me/", userController.UpdateMe)
		users.GET("/subscriptions/", userController.GetSubscriptions)
		users.GET("/recommendations/", userController.GetRecommendations)
		users.GET("/:id/", userController.GetUser)
		users.PUT("/:id/", userController.UpdateUser)
		users.PATCH("/:id/", userController.UpdateUser)
		users.DELETE("/:id/", userController.DeleteUser)
		users.POST("/:id/subscribe/", userController.Subscribe)
		users.DELETE("/:id/subscribe/", userController.Unsubscribe)
	}
}
