package bootstrap

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"referralhub/internal/bootstrap/config"
	"referralhub/internal/bootstrap/database"
	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	cacheinfra "referralhub/internal/infrastructure/cache"
	"referralhub/internal/infrastructure/identity"
	"referralhub/internal/infrastructure/lock"
	"referralhub/internal/infrastructure/narrator"
	"referralhub/internal/infrastructure/notify"
	sqliterepo "referralhub/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "referralhub/internal/infrastructure/persistence/sqlite/uow"
	"referralhub/internal/ports"
	"referralhub/internal/usecase/referral"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(sqliterepo.NewReferralRepository),
	fx.Provide(provideReferralStores),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewPaymentRepository,
			fx.As(new(ports.PaymentRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewDirectoryRepository,
			fx.As(new(ports.DirectoryRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideRedis),
	fx.Provide(provideCache),
	fx.Provide(provideLocker),
	fx.Provide(provideNotifier),
	fx.Provide(provideNarrator),
	fx.Provide(provideVerifier),
	fx.Provide(provideSLAPolicy),
	fx.Provide(provideReferralService),
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

type referralStores struct {
	fx.Out

	Referrals ports.ReferralRepository
	Audit     ports.AuditLog
	Activity  ports.ActivityLog
	Notes     ports.NoteLog
}

// One table family backs the referral row and its append-only logs.
func provideReferralStores(repo *sqliterepo.ReferralRepository) referralStores {
	return referralStores{
		Referrals: repo,
		Audit:     repo,
		Activity:  repo,
		Notes:     repo,
	}
}

// provideRedis returns a nil client unless the redis cache is configured.
func provideRedis(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.Cache.Driver != "redis" {
		return nil, nil
	}

	client, err := cacheinfra.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err != nil {
		return nil, errs.Wrap(err, "connect redis")
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideCache(cfg config.Config, db *gorm.DB, client *redis.Client) ports.Cache {
	if client != nil {
		return cacheinfra.NewRedisCache(client, cfg.Cache.Prefix)
	}
	return cacheinfra.NewSQLiteCache(db)
}

func provideLocker(client *redis.Client) ports.Locker {
	if client != nil {
		return lock.NewRedisLocker(client)
	}
	return lock.NewLocalLocker()
}

func provideNotifier(lc fx.Lifecycle, cfg config.Config) (ports.Notifier, error) {
	switch cfg.Notify.Driver {
	case "smtp":
		n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Notify.SMTP.Host,
			Port:     cfg.Notify.SMTP.Port,
			Username: cfg.Notify.SMTP.Username,
			Password: cfg.Notify.SMTP.Password,
			Sender:   cfg.Notify.SMTP.Sender,
		})
		if err != nil {
			return nil, errs.Wrap(err, "build smtp notifier")
		}
		return n, nil
	case "nats":
		conn, err := notify.DialNATS(cfg.Notify.NATS.URL)
		if err != nil {
			return nil, errs.Wrap(err, "connect nats")
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return drainNATS(conn)
			},
		})
		return notify.NewNATSNotifier(conn, cfg.Notify.NATS.Subject), nil
	default:
		return notify.LogNotifier{}, nil
	}
}

func drainNATS(conn *nats.Conn) error {
	if err := conn.Drain(); err != nil {
		conn.Close()
		return errs.Wrap(err, "drain nats")
	}
	return nil
}

// provideNarrator returns a nil generator when AI copy is disabled.
func provideNarrator(ctx context.Context, cfg config.Config) (ports.TextGenerator, error) {
	if !cfg.AI.Enabled {
		return nil, nil
	}

	gen, err := narrator.NewOpenAIGenerator(narrator.Config{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		return nil, errs.Wrap(err, "build narrator")
	}
	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx")),
		"ai narrative enabled",
		slog.String("model", cfg.AI.Model),
	)
	return gen, nil
}

func provideVerifier(cfg config.Config) (ports.IdentityVerifier, error) {
	if cfg.Auth.Mode == "header" {
		return identity.HeaderVerifier{}, nil
	}

	v, err := identity.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return nil, errs.Wrap(err, "build jwt verifier")
	}
	return v, nil
}

func provideSLAPolicy(cfg config.Config) (domainreferral.SLAPolicy, error) {
	return config.LoadSLAPolicy(cfg.SLA.PolicyFile)
}

type serviceParams struct {
	fx.In

	Config    config.Config
	Policy    domainreferral.SLAPolicy
	Referrals ports.ReferralRepository
	Audit     ports.AuditLog
	Activity  ports.ActivityLog
	Notes     ports.NoteLog
	Payments  ports.PaymentRepository
	Directory ports.DirectoryRepository
	UoW       ports.UnitOfWork
	Locker    ports.Locker
	Cache     ports.Cache
	Notifier  ports.Notifier
	Narrator  ports.TextGenerator
}

func provideReferralService(p serviceParams) *referral.Service {
	return referral.NewService(referral.Deps{
		Referrals: p.Referrals,
		Audit:     p.Audit,
		Activity:  p.Activity,
		Notes:     p.Notes,
		Payments:  p.Payments,
		Directory: p.Directory,
		UoW:       p.UoW,
		Locker:    p.Locker,
		Cache:     p.Cache,
		Notifier:  p.Notifier,
		Narrator:  p.Narrator,
	}, referral.Settings{
		CommissionFallbackBps: p.Config.Fees.DefaultCommissionBps,
		Policy:                p.Policy,
		NarrativeTTL:          p.Config.Cache.NarrativeTTL,
		AdminEmails:           p.Config.Notify.AdminEmails,
	})
}
