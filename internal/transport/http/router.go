package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/DosAbicos/2tick-sub000/internal/application/contract"
	"github.com/DosAbicos/2tick-sub000/internal/application/otp"
	"github.com/DosAbicos/2tick-sub000/internal/application/template"
	"github.com/DosAbicos/2tick-sub000/internal/config"
	"github.com/DosAbicos/2tick-sub000/internal/domain"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/dynamo"
	jwtinfra "github.com/DosAbicos/2tick-sub000/internal/infrastructure/jwt"
	s3infra "github.com/DosAbicos/2tick-sub000/internal/infrastructure/s3"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/smtp"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/sns"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/telegram"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/voice"
	"github.com/DosAbicos/2tick-sub000/internal/transport/http/handler"
	appmiddleware "github.com/DosAbicos/2tick-sub000/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router. Delivery
// backends and the snapshot store are optional and may be nil.
type Deps struct {
	TemplateRepo     *dynamo.TemplateRepo
	ContractRepo     *dynamo.ContractRepo
	VerificationRepo *dynamo.VerificationRepo
	ChatLinkRepo     *dynamo.ChatLinkRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	Caller           voice.Caller
	BotSender        telegram.Sender
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, applied to public signing endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(otp.ServiceDeps{
		VerificationRepo:  deps.VerificationRepo,
		ChatLinkRepo:      deps.ChatLinkRepo,
		Contacts:          otp.NewContacts(deps.ContractRepo),
		SMSSender:         deps.SMSSender,
		Caller:            deps.Caller,
		BotSender:         deps.BotSender,
		CodeLength:        cfg.OTPCodeLength,
		CodeTTL:           cfg.OTPTTL,
		VoiceCallerNumber: cfg.VoiceCallerNumber,
		BotUsername:       cfg.TelegramBotUsername,
		Production:        cfg.Production(),
	})

	contractDeps := contract.ServiceDeps{
		ContractRepo: deps.ContractRepo,
		TemplateRepo: deps.TemplateRepo,
		Verifier:     otpSvc,
		Mailer:       deps.Mailer,
	}
	if deps.S3Store != nil {
		contractDeps.Snapshots = deps.S3Store
	}
	contractSvc := contract.NewService(contractDeps)
	templateSvc := template.NewService(deps.TemplateRepo)

	healthH := handler.NewHealthHandler()
	templateH := handler.NewTemplateHandler(templateSvc)
	contractH := handler.NewContractHandler(contractSvc)
	otpH := handler.NewOTPHandler(otpSvc, contractSvc)
	botH := handler.NewBotHandler(otpSvc)

	r.Route("/v1", func(r chi.Router) {
		// Public routes: the signer holds a contract link, never a JWT.
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.Get("/contracts/{id}/signer-view", contractH.SignerContent)
		r.With(sensitiveRL.Limit).Put("/contracts/{id}/signer-values", contractH.UpdateSignerValues)
		r.With(sensitiveRL.Limit).Post("/contracts/{id}/otp/request", otpH.RequestCode)
		r.With(sensitiveRL.Limit).Post("/contracts/{id}/otp/verify", otpH.VerifyCode)
		r.With(sensitiveRL.Limit).Post("/bot/start", botH.Start)

		// Authenticated routes for the contract creator.
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/contracts", contractH.Create)
			r.Get("/contracts", contractH.List)
			r.Get("/contracts/{id}", contractH.Get)
			r.Put("/contracts/{id}/values", contractH.UpdateValues)
			r.Post("/contracts/{id}/finalize", contractH.Finalize)
			r.Post("/contracts/{id}/approve", contractH.Approve)
			r.Get("/contracts/{id}/content", contractH.Content)
			r.Get("/contracts/{id}/snapshot", contractH.Snapshot)

			r.Get("/templates", templateH.List)
			r.Get("/templates/{id}", templateH.Get)

			// Admin-only template management.
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/templates", templateH.Create)
				r.Put("/templates/{id}", templateH.Update)
				r.Delete("/templates/{id}", templateH.Delete)
			})
		})
	})

	return r
}
