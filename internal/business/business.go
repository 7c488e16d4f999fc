package business

import (
	"context"
	"errors"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"
	"golang.org/x/sync/errgroup"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/auth/authvalkey"
	"github.com/property360/usersession/internal/business/server"
	"github.com/property360/usersession/internal/config"
	"github.com/property360/usersession/internal/profile"
	"github.com/property360/usersession/internal/profile/profilesql"
	"github.com/property360/usersession/internal/storage"
	"github.com/property360/usersession/internal/storage/storagemem"
	"github.com/property360/usersession/internal/storage/storagesqlite"
	"github.com/property360/usersession/internal/storage/storagevalkey"
	"github.com/property360/usersession/internal/usersession"
)

// Main mounts the user session and serves it over HTTP until ctx is done.
func Main(ctx context.Context, cfg *config.Config) error {
	facade, closeFn, err := initFacade(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the user session: %w", err)
	}
	defer closeFn()

	return serve(ctx, cfg, facade)
}

// serve mounts facade and serves it until ctx is done. The facade is always
// unmounted on return, including when mounting fails part way.
func serve(ctx context.Context, cfg *config.Config, facade *usersession.Facade) error {
	err := facade.Mount(ctx)
	defer facade.Unmount()
	if err != nil {
		return fmt.Errorf("mounting the user session: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.StartHTTPServer(gctx, cfg, facade)
	})

	g.Go(func() error {
		<-gctx.Done()
		facade.Unmount()
		slogctx.Info(ctx, "Unmounted the user session")
		return nil
	})

	return g.Wait()
}

func initFacade(ctx context.Context, cfg *config.Config) (_ *usersession.Facade, closeFn func(), _ error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := newProfileStorePool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, db.Close)

	valkeyClient, err := newValkeyClient(cfg.ValKey)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, valkeyClient.Close)

	backend, closeBackend, err := newLocalStoreBackend(ctx, cfg, valkeyClient)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, closeBackend)

	verifier, err := newVerifier(cfg.Provider)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	reporter, err := newMetricsReporter(cfg)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	facade := usersession.New(
		storage.New(backend),
		authvalkey.NewProvider(valkeyClient, cfg.ValKey.Prefix, verifier),
		profile.NewResolver(profilesql.NewRepository(db)),
		usersession.WithCapacity(cfg.Session.RecentlyViewedCapacity),
		usersession.WithCurrentUserMirror(cfg.Session.MirrorCurrentUser),
		usersession.WithErrorReporter(reporter),
	)

	return facade, closeAll, nil
}

func newProfileStorePool(ctx context.Context, dbCfg config.Database) (*pgxpool.Pool, error) {
	dsn, err := dbCfg.DSN()
	if err != nil {
		return nil, fmt.Errorf("building the profile store DSN: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	return db, nil
}

func newValkeyClient(cfg config.ValKey) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}

var errUnknownLocalStore = errors.New("unknown local store driver")

func newLocalStoreBackend(ctx context.Context, cfg *config.Config, valkeyClient valkey.Client) (storage.Backend, func(), error) {
	switch cfg.LocalStore.Driver {
	case config.LocalStoreSQLite, "":
		b, err := storagesqlite.Open(ctx, cfg.LocalStore.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening the local store: %w", err)
		}
		return b, func() {
			if err := b.Close(); err != nil {
				slogctx.Error(ctx, "Failed to close the local store", "error", err)
			}
		}, nil
	case config.LocalStoreValKey:
		return storagevalkey.NewBackend(valkeyClient, cfg.ValKey.Prefix), func() {}, nil
	case config.LocalStoreMemory:
		return storagemem.NewBackend(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownLocalStore, cfg.LocalStore.Driver)
	}
}

func newVerifier(cfg config.Provider) (*authvalkey.Verifier, error) {
	jwks, err := commoncfg.LoadValueFromSourceRef(cfg.JWKS)
	if err != nil {
		return nil, fmt.Errorf("loading provider jwks: %w", err)
	}

	keySet, err := authvalkey.ParseKeySet(jwks)
	if err != nil {
		return nil, fmt.Errorf("parsing provider jwks: %w", err)
	}

	return authvalkey.NewVerifier(keySet, cfg.Issuer, cfg.Algorithms, cfg.Leeway), nil
}
