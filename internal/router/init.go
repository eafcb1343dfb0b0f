package router

import (
	"github.com/vendra/identity-core/internal/application"
	"github.com/vendra/identity-core/internal/audit"
	"github.com/vendra/identity-core/internal/container"
	pginfra "github.com/vendra/identity-core/internal/infrastructure/postgres"
	handlers "github.com/vendra/identity-core/internal/interface/http"
	"github.com/vendra/identity-core/internal/router/modules"
	"github.com/vendra/identity-core/pkg/helpers"
	"github.com/vendra/identity-core/pkg/password"
)

func buildAuthModule() *modules.AuthModule {
	cfg := container.GetConfig()
	pool := container.GetPGPool()

	identities := pginfra.NewAuthIdentityRepository(pool)
	resolver := application.NewAccountResolver(
		pginfra.NewTenantRepository(pool),
		pginfra.NewCustomerRepository(pool),
		pginfra.NewEmployeeRepository(pool),
	)

	resetLimiter := container.GetResetLimiter()
	auditRec := audit.NewRecorder(container.GetES(), cfg.ESAuditIndex, container.GetLogger())

	var emailPub, eventPub application.Publisher
	if p := container.GetEmailPub(); p != nil {
		emailPub = p
	}
	if p := container.GetEventPub(); p != nil {
		eventPub = p
	}

	svc := application.NewAuthService(
		identities,
		resolver,
		container.GetTokens(),
		password.NewHasher(cfg.BcryptCost),
		resetLimiter,
		emailPub,
		eventPub,
		auditRec,
		container.GetLogger(),
		cfg.ResetPasswordURL,
	)

	cookies := helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure, cfg.Env == "production")
	handler := handlers.NewAuthHandler(svc, container.GetLogger(), cookies)
	return modules.NewAuthModule(handler, container.GetTokens())
}

// InitModules initializes all application modules and registers them with
// the router registry. Called once during startup.
func InitModules(r *Registry) {
	r.Add(buildAuthModule())
}
