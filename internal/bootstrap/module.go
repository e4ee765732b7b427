package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"labgate/internal/bootstrap/config"
	"labgate/internal/bootstrap/database"
	"labgate/internal/bootstrap/logging"
	domainescalation "labgate/internal/domain/escalation"
	cacheinfra "labgate/internal/infrastructure/cache"
	mailinfra "labgate/internal/infrastructure/mail"
	sqliterepo "labgate/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "labgate/internal/infrastructure/persistence/sqlite/uow"
	"labgate/internal/ports"
	"labgate/internal/usecase/escalation"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewEscalationRepository,
			fx.As(new(ports.EscalationRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideMailer),
	fx.Provide(providePolicy),
	fx.Provide(ports.SystemClock),
	fx.Provide(provideService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideMailer(cfg config.Config) ports.Mailer {
	return mailinfra.NewSMTPMailer(cfg.Mail)
}

func providePolicy(cfg config.Config) domainescalation.Policy {
	return domainescalation.NewPolicy(
		cfg.Escalation.QualityManager,
		cfg.Escalation.ProductionContact,
		cfg.Escalation.Companies,
	)
}

func provideService(
	repo ports.EscalationRepository,
	uow ports.UnitOfWork,
	cache ports.Cache,
	mailer ports.Mailer,
	clock ports.Clock,
	policy domainescalation.Policy,
	cfg config.Config,
) *escalation.Service {
	return escalation.NewService(repo, uow, cache, mailer, clock, policy, escalation.Settings{
		BaseURL:  cfg.Server.BaseURL,
		TokenTTL: cfg.Escalation.TokenTTL(),
	})
}
