// Package app wires the account service from environment configuration.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	accountrepo "github.com/ovaphlow/pitchfork/service-account-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/cleanup"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/credential"
	credentialrepo "github.com/ovaphlow/pitchfork/service-account-go/internal/credential/repo"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/ephemeral"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/notify"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

// App holds the wired components. Close releases the database and the
// ephemeral store.
type App struct {
	DB        *sqlx.DB
	Accounts  *accountrepo.AccountRepo
	Tokens    *credentialrepo.RefreshRepo
	Ephemeral ephemeral.Store
	Signer    *credential.JWTSigner
	Issuer    *credential.Issuer
	Queue     *notify.Queue
	Auth      *auth.Service
	Cleanup   *cleanup.Job
}

// New connects to Postgres and the ephemeral store and builds the services.
func New(ctx context.Context, logger *zap.SugaredLogger) (*App, error) {
	db, err := database.Connect(ctx, database.ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	a := &App{
		DB:       db,
		Accounts: accountrepo.NewAccountRepo(db),
		Tokens:   credentialrepo.NewRefreshRepo(db),
	}

	a.Ephemeral, err = ephemeral.New(ctx, ephemeral.ConfigFromEnv())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ephemeral store: %w", err)
	}

	credCfg := credential.ConfigFromEnv()
	a.Signer, err = credential.NewJWTSigner(credCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("jwt signer: %w", err)
	}
	a.Issuer = credential.NewIssuer(a.Tokens, a.Accounts, a.Signer, credCfg.RefreshTTLDays, logger)

	ids, err := utilities.NewIDGenerator(utilities.NodeFromEnv())
	if err != nil {
		a.Close()
		return nil, err
	}

	authCfg := auth.ConfigFromEnv()
	dispatcher := notify.NewDispatcher(a.Ephemeral, notify.LogSender{Logger: logger}, authCfg.OtpTTL, logger)
	a.Queue = notify.NewQueue(notify.QueueSizeFromEnv(), dispatcher.Handle, logger)

	a.Auth = auth.NewService(auth.Deps{
		Accounts:    a.Accounts,
		Credentials: a.Issuer,
		Ephemeral:   a.Ephemeral,
		Publisher:   a.Queue,
		IDs:         ids,
		Logger:      logger,
	}, authCfg)
	a.Cleanup = cleanup.NewJob(a.Accounts, a.Tokens, cleanup.ConfigFromEnv(), logger)
	return a, nil
}

// Migrate creates the tables if they are missing.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.Accounts.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure accounts table: %w", err)
	}
	if err := a.Tokens.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure refresh token table: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if c, ok := a.Ephemeral.(io.Closer); ok {
		_ = c.Close()
	}
	_ = a.DB.Close()
}
