// Command orgapi serves the organization API and writes its OpenAPI
// document.
//
//	orgapi serve --addr :8080           serve the API, /openapi.json and /metrics
//	orgapi spec --format yaml -o api.yaml
//	orgapi spec --verify                 check the document before printing it
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chotinc/api"
)

const (
	apiTitle   = "User API"
	apiVersion = "1.0.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("orgapi failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orgapi",
		Short:         "Organization API server",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().String("base-path", "", "Mount every route below this prefix, e.g. /v1")

	cmd.AddCommand(newServeCmd(), newSpecCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.Flags(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			addr, err := cmd.Flags().GetString("addr")
			if err != nil {
				return err
			}
			basePath, err := cmd.Flags().GetString("base-path")
			if err != nil {
				return err
			}

			h, err := newHandler(logger, prometheus.NewRegistry(), basePath)
			if err != nil {
				return err
			}

			logger.Info("starting server", "addr", addr, "spec", basePath+"/openapi.json")
			if err := api.Serve(cmd.Context(), addr, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().String("addr", ":8080", "Listen address")
	return cmd
}

func newSpecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Write the OpenAPI document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			format, err := flags.GetString("format")
			if err != nil {
				return err
			}
			out, err := flags.GetString("out")
			if err != nil {
				return err
			}
			verify, err := flags.GetBool("verify")
			if err != nil {
				return err
			}
			basePath, err := flags.GetString("base-path")
			if err != nil {
				return err
			}

			doc, err := generate(basePath)
			if err != nil {
				return err
			}
			if verify {
				if err := api.Verify(cmd.Context(), doc); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return writeDocument(w, doc, format)
		},
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	cmd.Flags().String("format", "json", "Output format (json|yaml)")
	cmd.Flags().Bool("verify", false, "Validate the document before writing it")
	return cmd
}

// newHandler builds the API router and mounts it next to /metrics.
func newHandler(logger *slog.Logger, reg *prometheus.Registry, basePath string) (http.Handler, error) {
	reg.MustRegister(collectors.NewGoCollector())
	metrics, err := api.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	opts := []api.RouterOption{
		api.WithTitle(apiTitle),
		api.WithVersion(apiVersion),
		api.WithTagDescriptions(map[string]string{
			"organizations": "Organization management",
			"users":         "Organization members and the calling user",
		}),
		api.WithSpec("/openapi.json"),
		api.WithSpec("/openapi.yaml"),
		api.WithValidator(api.StructValidator()),
		api.WithLogger(logger),
		api.WithMetrics(metrics),
	}
	if basePath != "" {
		opts = append(opts, api.WithBasePath(basePath))
	}

	r, err := api.NewRouter(newRegistry(), opts...)
	if err != nil {
		return nil, err
	}
	r.Use(api.RequestID(), api.Logger(logger), api.Recovery(logger))

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", r)
	return mux, nil
}

func generate(basePath string) (*api.Document, error) {
	var opts []api.DocOption
	if basePath != "" {
		opts = append(opts, api.DocServers(api.Server{URL: basePath}))
	}
	return api.Generate(newRegistry(), api.Info{Title: apiTitle, Version: apiVersion}, opts...)
}

func writeDocument(w io.Writer, doc *api.Document, format string) error {
	switch strings.ToLower(format) {
	case "json":
		return doc.WriteJSON(w)
	case "yaml", "yml":
		return doc.WriteYAML(w)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

func newLogger(flags *pflag.FlagSet, w io.Writer) (*slog.Logger, error) {
	name, err := flags.GetString("log-level")
	if err != nil {
		return nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
