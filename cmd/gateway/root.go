package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"sector-gateway/auth/token"
	"sector-gateway/internal/logctx"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gateway",
		Short:         "Sector analysis gateway: token login, rate limit and Markdown reports",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

// newTokenCmd emite um token offline com o segredo configurado (útil para testes manuais).
func newTokenCmd() *cobra.Command {
	var identity string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed token for an identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := token.New(token.Config{
				Secret: []byte(cfg.JWTSecret),
				Alg:    cfg.JWTAlg,
				TTL:    cfg.sessionTTL(),
			})
			if err != nil {
				return err
			}
			tok, err := svc.Issue(identity)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !asJSON {
				_, err = fmt.Fprintln(out, tok.Value)
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"token":      tok.Value,
				"subject":    tok.Subject,
				"issued_at":  tok.IssuedAt.UTC().Format(time.RFC3339),
				"expires_at": tok.ExpiresAt.UTC().Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "identity placed in the sub claim")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print token metadata as JSON")
	_ = cmd.MarkFlagRequired("identity")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}

func newLogger(cfg config, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := cfg.logLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var base slog.Handler
	if cfg.LogFormat == "json" {
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}
	return slog.New(logctx.Handler{Handler: base}), nil
}
