package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/odling/odling-api/src/config"
	"github.com/odling/odling-api/src/controllers"
	"github.com/odling/odling-api/src/events"
	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/middleware"
	"github.com/odling/odling-api/src/routes"
	"github.com/odling/odling-api/src/services"
	"github.com/odling/odling-api/src/storage"
)

const bodyLimit = 10 * 1024 * 1024

// Deps are the process-wide resources the HTTP layer is built from
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Images    storage.ImageStore
	Publisher events.Publisher

	// DisableLogger turns off per-request logging
	DisableLogger bool
}

// New wires controllers, middleware and routes into a fiber app
func New(deps Deps) *fiber.App {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		AppName:      "odling-api",
		ErrorHandler: lib.ErrorHandler,
		BodyLimit:    bodyLimit,
	})

	app.Use(recover.New())
	if !deps.DisableLogger {
		app.Use(logger.New())
	}
	// credentials cannot be combined with the wildcard origin
	origins := strings.Join(cfg.CORSOrigins(), ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: origins != "" && origins != "*",
	}))

	tokens := lib.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn)
	auth := middleware.NewAuth(deps.DB, tokens)
	notifier := services.NewNotifier(deps.DB, deps.Publisher)
	follows := services.NewFollowService(deps.DB, notifier)
	comments := controllers.NewCommentController(deps.DB, notifier)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	routes.AuthRoutes(app, controllers.NewAuthController(deps.DB, tokens, cfg.IsProduction()), auth)
	routes.ProfileRoutes(app, controllers.NewProfileController(deps.DB), auth)
	routes.UserRoutes(app, controllers.NewUserController(deps.DB))
	routes.PostRoutes(app,
		controllers.NewPostController(deps.DB, deps.Images),
		controllers.NewLikeController(deps.DB, notifier),
		comments,
		auth,
	)
	routes.CommentRoutes(app, comments, auth)
	routes.FollowRoutes(app, controllers.NewFollowController(follows), auth)
	routes.NotificationRoutes(app, controllers.NewNotificationController(deps.DB, notifier), auth)
	routes.PictureRoutes(app, controllers.NewPictureController(deps.DB, deps.Images), auth)

	if local, ok := deps.Images.(*storage.LocalStore); ok {
		app.Static(storage.PublicPrefix, local.Root)
	}

	// Serve the built frontend, falling back to index.html for client-side routes
	if cfg.PublicDir != "" {
		index := filepath.Join(cfg.PublicDir, "index.html")
		app.Static("/", cfg.PublicDir)
		app.Get("/*", func(c *fiber.Ctx) error {
			if _, err := os.Stat(index); err != nil {
				return fiber.ErrNotFound
			}
			return c.SendFile(index)
		})
	}

	return app
}
