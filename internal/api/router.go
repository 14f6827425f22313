package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusOK, "API is healthy")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", apiHandler.SignupHandler)
			r.Post("/verify-otp", apiHandler.VerifyOTPHandler)
			r.Post("/resend-verification-email", apiHandler.ResendVerificationEmailHandler)
			r.Post("/login", apiHandler.LoginHandler)
			r.Post("/forgot-password", apiHandler.ForgotPasswordHandler)
			r.Patch("/reset-password", apiHandler.ResetPasswordHandler)

			r.Group(func(r chi.Router) {
				r.Use(apiHandler.JWTAuthMiddleware)
				r.Post("/refresh-token", apiHandler.RefreshTokenHandler)
			})
		})

		r.Route("/chats", func(r chi.Router) {
			// The websocket carries its credential as a query parameter.
			r.Get("/ws/{docID}", apiHandler.ChatSocketHandler)

			r.Group(func(r chi.Router) {
				r.Use(apiHandler.JWTAuthMiddleware)
				r.Post("/upload", apiHandler.UploadHandler)
				r.Delete("/{docID}", apiHandler.DeleteDocumentHandler)
			})
		})
	})

	return r
}
