package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	jwttoken "vendorwatch/internal/jwt_token"
	"vendorwatch/internal/platform/httpserver"
	"vendorwatch/internal/vendors/models"
)

var errMissingJWTSecret = errors.New("ADMIN_JWT_SECRET is required")

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scheduler and the admin HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	if opts.Config.Server.AdminJWTSecret == "" {
		return errMissingJWTSecret
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.Config, opts.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			opts.Logger.Error("shutdown", "error", err)
		}
	}()

	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	tokens := jwttoken.NewJWTService(opts.Config.Server.AdminJWTSecret)
	srv := httpserver.New(opts.Config.Server.Addr, newRouter(a, tokens))

	g, ctx := errgroup.WithContext(ctx)
	if a.relay != nil {
		g.Go(func() error {
			if err := a.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		return httpserver.Serve(ctx, srv, opts.Logger)
	})
	return g.Wait()
}

func newRunOnceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Execute one compliance run and print its report",
		Long: `Execute one compliance run immediately, print the run report as JSON
and exit. The exit status is non-zero when the run failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.Config, opts.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			report, runErr := a.service.Run(cmd.Context())
			if report != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

type issueTokenOptions struct {
	Subject string
	Role    string
	TTL     time.Duration
}

func newIssueTokenCommand(opts *rootOptions) *cobra.Command {
	tokenOpts := &issueTokenOptions{}

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign an operator token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config.Server.AdminJWTSecret == "" {
				return errMissingJWTSecret
			}
			role := models.Role(tokenOpts.Role)
			if role != models.RoleAdmin && role != models.RoleReviewer {
				return fmt.Errorf("unsupported role %q", tokenOpts.Role)
			}
			tokens := jwttoken.NewJWTService(opts.Config.Server.AdminJWTSecret)
			token, err := tokens.GenerateOperatorToken(tokenOpts.Subject, role, tokenOpts.TTL)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&tokenOpts.Subject, "subject", "", "operator identity recorded in the token (required)")
	cmd.Flags().StringVar(&tokenOpts.Role, "role", string(models.RoleAdmin), "token role (ADMIN|REVIEWER)")
	cmd.Flags().DurationVar(&tokenOpts.TTL, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
