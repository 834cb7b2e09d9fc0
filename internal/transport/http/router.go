package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/go-api-community/internal/application/auth"
	"github.com/go-api-community/internal/application/comment"
	"github.com/go-api-community/internal/application/engagement"
	"github.com/go-api-community/internal/application/post"
	"github.com/go-api-community/internal/application/recommend"
	"github.com/go-api-community/internal/application/user"
	"github.com/go-api-community/internal/config"
	"github.com/go-api-community/internal/transport/http/handler"
	appmiddleware "github.com/go-api-community/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background work such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(appmiddleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10, on the public auth endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:         deps.UserRepo,
		VerificationRepo: deps.VerificationRepo,
		Mailer:           deps.Mailer,
		JWTProvider:      deps.JWTProvider,
		OTPExpiry:        cfg.OTPExpiry,
	})
	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo})
	postSvc := post.NewService(post.ServiceDeps{
		PostRepo:      deps.PostRepo,
		CommentRepo:   deps.CommentRepo,
		ObjectStore:   deps.ObjectStore,
		PublicBaseURL: cfg.PublicBaseURL,
		MaxMediaBytes: cfg.MediaMaxBytes,
	})
	recommendSvc := recommend.NewService(recommend.ServiceDeps{
		UserRepo:       deps.UserRepo,
		PostRepo:       deps.PostRepo,
		EngagementRepo: deps.EngagementRepo,
		CommentRepo:    deps.CommentRepo,
	})
	engagementSvc := engagement.NewService(engagement.ServiceDeps{
		PostRepo:       deps.PostRepo,
		EngagementRepo: deps.EngagementRepo,
		CommentRepo:    deps.CommentRepo,
	})
	commentSvc := comment.NewService(comment.ServiceDeps{CommentRepo: deps.CommentRepo})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	postH := handler.NewPostHandler(postSvc, recommendSvc, cfg.MediaMaxBytes)
	engagementH := handler.NewEngagementHandler(engagementSvc)
	commentH := handler.NewCommentHandler(commentSvc)
	mediaH := handler.NewMediaHandler(postSvc)

	r.Get("/health-check/{action}", healthH.Ping)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/uploads/{kind}/{name}", mediaH.Serve)

	r.Route("/api", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/register", authH.Register)
			r.Post("/verify-otp", authH.VerifyOTP)
			r.Post("/login", authH.Login)
			r.Post("/request-password-reset", authH.RequestPasswordReset)
			r.Post("/reset-password", authH.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Route("/posts", func(r chi.Router) {
				r.Post("/create", postH.Create)
				r.Put("/update/{postID}", postH.Update)
				r.Delete("/delete/{postID}", postH.Delete)
				r.Get("/getposts", postH.Recommended)

				r.Post("/savepost", engagementH.ToggleSave)
				r.Get("/getsavedposts", engagementH.Saved)
				r.Post("/view", engagementH.View)
				r.Post("/like-unlike/{postID}", engagementH.ToggleLike)

				r.Post("/createcomment", commentH.Create)
				r.Put("/updatecomment/{commentID}", commentH.Update)
				r.Delete("/deletecomment/{commentID}", commentH.Delete)
			})

			r.Get("/users/me", userH.Me)
			r.Put("/users/me/interests", userH.UpdateInterests)
		})
	})

	return r
}
