package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/onboard/authclient"
	"github.com/hashicorp/onboard/config"
	"github.com/hashicorp/onboard/jwt"
	"github.com/hashicorp/onboard/web"
	"github.com/spf13/cobra"
)

// flagVars maps each serve flag to the variable it overrides.
var flagVars = map[string]string{
	"addr":       "ADDR",
	"public-url": "PUBLIC_URL",
	"auth-url":   "AUTH_URL",
	"jwks-url":   "JWKS_URL",
	"log-level":  "LOG_LEVEL",
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "onboard",
		Short:        "Sign in and sign up pages in front of a better-auth service",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var envFiles []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the onboarding pages",
		Long: `Serve the sign in, sign up and dashboard pages.

Configuration is read from ONBOARD_* environment variables and optional
.env files; flags override both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			environment := env.ToMap(os.Environ())
			for flag, name := range flagVars {
				if cmd.Flags().Changed(flag) {
					v, err := cmd.Flags().GetString(flag)
					if err != nil {
						return err
					}
					environment[config.EnvPrefix+name] = v
				}
			}
			opts := []config.Option{config.WithEnvironment(environment)}
			if len(envFiles) > 0 {
				opts = append(opts, config.WithDotEnv(envFiles...))
			}
			cfg, err := config.Load(opts...)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().String("addr", web.DefaultAddr, "address to listen on")
	cmd.Flags().String("public-url", "", "browser-facing URL of this server")
	cmd.Flags().String("auth-url", "", "API root of the auth service (ex: http://localhost:3000/api/auth)")
	cmd.Flags().String("jwks-url", "", "JWKS of the auth service; enables bearer JWT sessions")
	cmd.Flags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "read variables from .env files")
	return cmd
}

// serve wires the auth client, the optional JWT validator and the web
// server, then serves until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	const op = "main.serve"
	logger := cfg.Logger(logOut)

	server, err := newServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("starting", "version", version, "auth_url", cfg.AuthURL, "addr", cfg.Addr)
	return server.ListenAndServe(ctx)
}

func newServer(ctx context.Context, cfg *config.Config, logger hclog.Logger) (*web.Server, error) {
	clientConfig, err := authclient.NewConfig(cfg.AuthURL,
		authclient.WithOrigin(cfg.PublicURL),
		authclient.WithProviderCA(cfg.AuthCAPEM),
		authclient.WithTimeout(cfg.AuthTimeout),
		authclient.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	client, err := authclient.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	opts := []web.Option{
		web.WithLogger(logger),
		web.WithAddr(cfg.Addr),
		web.WithPublicURL(cfg.PublicURL),
		web.WithSecureCookies(cfg.SecureCookies || strings.HasPrefix(cfg.PublicURL, "https://")),
		web.WithShutdownTimeout(cfg.ShutdownTimeout),
	}
	if cfg.JWKSURL != "" {
		keySet, err := jwt.NewJSONWebKeySet(ctx, cfg.JWKSURL, cfg.AuthCAPEM)
		if err != nil {
			return nil, err
		}
		validator, err := jwt.NewValidator(keySet)
		if err != nil {
			return nil, err
		}
		var validateOpts []jwt.Option
		if cfg.JWTNormalizeAudiences {
			validateOpts = append(validateOpts, jwt.WithNormalizedAudiences())
		}
		opts = append(opts, web.WithTokenValidator(validator, jwt.Expected{
			Issuer:            cfg.JWTIssuer,
			Audiences:         cfg.JWTAudiences,
			SigningAlgorithms: cfg.SigningAlgorithms(),
		}, validateOpts...))
	}
	return web.NewServer(client, opts...)
}
