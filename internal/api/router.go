package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/api/handlers"
	"github.com/Cheertaboi/storefront-checkout/internal/api/middleware"
	"github.com/Cheertaboi/storefront-checkout/internal/shopper"
)

type Options struct {
	Logger       zerolog.Logger
	CookieSecure bool
}

// NewRouter builds the HTTP router for the storefront
func NewRouter(reg *shopper.Registry, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.Logger(opts.Logger))

	cartHandler := handlers.NewCartHandler(reg, opts.Logger)
	authHandler := handlers.NewAuthHandler(reg, opts.Logger)
	catalogHandler := handlers.NewCatalogHandler(reg, opts.Logger)
	reviewHandler := handlers.NewReviewHandler(reg, opts.Logger)
	orderHandler := handlers.NewOrderHandler(reg, opts.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Browser(opts.CookieSecure))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productID}", cartHandler.UpdateItem)
			r.Delete("/items/{productID}", cartHandler.RemoveItem)
			r.Post("/coupon", cartHandler.ApplyCoupon)
			r.Post("/checkout", cartHandler.Checkout)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)
		})

		r.Get("/categories", catalogHandler.ListCategories)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Get("/{id}", catalogHandler.GetProduct)
			r.Get("/{id}/reviews", reviewHandler.ProductReviews)

			// admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(authHandler.RequireAdmin)
				r.Post("/", catalogHandler.CreateProduct)
				r.Put("/{id}", catalogHandler.UpdateProduct)
				r.Delete("/{id}", catalogHandler.DeleteProduct)
				r.Post("/{id}/unavailable", catalogHandler.MarkUnavailable)
			})
		})

		r.Post("/reviews", reviewHandler.CreateReview)
		r.With(authHandler.RequireAdmin).Delete("/reviews/{id}", reviewHandler.DeleteReview)

		r.Get("/orders", orderHandler.ListOrders)
		r.Get("/orders/{id}", orderHandler.GetOrder)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
