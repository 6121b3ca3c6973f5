// Package cli implements hubctl, the operator command line for the hub.
// Commands run in-process against the configured storage; there is no API round trip.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxviazov/knowledge-hub/internal/app"
	"github.com/maxviazov/knowledge-hub/internal/auth"
	"github.com/maxviazov/knowledge-hub/internal/config"
	"github.com/maxviazov/knowledge-hub/internal/logger"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

// Env is what every subcommand runs against.
type Env struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  *app.Storage
}

// Opener builds an Env from a config path. Tests swap it for an in-memory one.
type Opener func(ctx context.Context, configPath string) (*Env, error)

// OpenFromConfig loads config, builds the logger and connects storage.
func OpenFromConfig(ctx context.Context, configPath string) (*Env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, err
	}
	store, err := app.OpenStorage(ctx, cfg, &log)
	if err != nil {
		return nil, err
	}
	return &Env{Config: cfg, Logger: log, Store: store}, nil
}

func (e *Env) entries() service.EntryService {
	s := e.Store
	return service.NewEntryService(s.Entries, s.Categories, s.Users, s.Tx, e.Logger)
}

func (e *Env) categories() service.CategoryService {
	return service.NewCategoryService(e.Store.Categories, e.Logger)
}

func (e *Env) users() service.UserService {
	return service.NewUserService(e.Store.Users, auth.NewTokens(e.Config.Auth), e.Logger)
}

type envKey struct{}

func envFrom(cmd *cobra.Command) (*Env, error) {
	env, ok := cmd.Context().Value(envKey{}).(*Env)
	if !ok || env == nil {
		return nil, errors.New("environment not initialised")
	}
	return env, nil
}

// NewRootCmd assembles hubctl. out receives command output; logs go to the configured logger.
func NewRootCmd(open Opener, out io.Writer) *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "hubctl",
		Short:         "Operate a knowledge-hub deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := open(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, env))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if env, err := envFrom(cmd); err == nil && env.Store != nil {
				env.Store.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config")
	root.SetOut(out)
	root.SetErr(out)

	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newEntriesCmd(),
		newUsersCmd(),
		newStatsCmd(),
	)
	return root
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
