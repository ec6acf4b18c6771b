package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"affiliate-link-resolver/config"
	"affiliate-link-resolver/internal/platform"
	"affiliate-link-resolver/internal/ratelimit"
	"affiliate-link-resolver/internal/resolver"
	resolverfx "affiliate-link-resolver/internal/resolver/fx"
)

type resolveService interface {
	ResolveAndIdentify(ctx context.Context, rawURL string) (resolver.Result, error)
	ResolveFor(ctx context.Context, want platform.Platform, rawURL string) (resolver.Result, error)
}

// newServiceFromEnv builds the resolver without the cache or metrics tiers.
// The process exits after one command, so the limiter is never closed.
func newServiceFromEnv() (resolveService, error) {
	cfg, err := config.NewConfig(config.NewViper())
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.New(cfg.Resolver.RatePerSecond, cfg.Resolver.RateBurst)
	if err != nil {
		return nil, err
	}
	engine := resolver.NewEngine(resolverfx.NewFetcher(cfg, limiter), cfg.Resolver.MaxHops, zap.NewNop().Sugar())
	deadline := time.Duration(cfg.Resolver.MaxHops) * cfg.Resolver.Timeout
	return resolver.NewService(engine, deadline, zap.NewNop().Sugar()), nil
}

func newRootCmd(newService func() (resolveService, error)) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "resolver",
		Short:         "Resolve affiliate links and extract marketplace product ids",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(
		newResolveCmd(newService),
		newClassifyCmd(),
		newExtractCmd(),
	)
	return rootCmd
}

func requireURL(cmd *cobra.Command, url string) error {
	if strings.TrimSpace(url) == "" {
		_ = cmd.Help()
		return errUsage
	}
	return nil
}

func newResolveCmd(newService func() (resolveService, error)) *cobra.Command {
	var (
		url         string
		platformArg string
	)

	c := &cobra.Command{
		Use:   "resolve",
		Short: "Follow a link to its product page and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireURL(cmd, url); err != nil {
				return err
			}

			want := platform.Unknown
			if platformArg != "" {
				p, err := platform.Parse(platformArg)
				if err != nil {
					return err
				}
				want = p
			}

			svc, err := newService()
			if err != nil {
				return err
			}

			var res resolver.Result
			if want == platform.Unknown {
				res, err = svc.ResolveAndIdentify(cmd.Context(), url)
			} else {
				res, err = svc.ResolveFor(cmd.Context(), want, url)
			}
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("resolve failed: %s", res.Error)
			}
			return nil
		},
	}
	c.Flags().StringVar(&url, "url", "", "Link to resolve (short, affiliate or product URL)")
	c.Flags().StringVar(&platformArg, "platform", "", "Expected platform (amazon, shopee, mercadolivre, magalu)")
	return c
}

type classifyOutput struct {
	URL             string            `json:"url"`
	Platform        platform.Platform `json:"platform"`
	ShortLink       bool              `json:"short_link"`
	NeedsResolution bool              `json:"needs_resolution"`
	Marketplace     string            `json:"marketplace"`
}

func newClassifyCmd() *cobra.Command {
	var url string

	c := &cobra.Command{
		Use:   "classify",
		Short: "Classify a URL without any network access",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireURL(cmd, url); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), classifyOutput{
				URL:             url,
				Platform:        platform.Classify(url),
				ShortLink:       platform.IsShortLink(url),
				NeedsResolution: platform.NeedsResolution(url),
				Marketplace:     platform.DetectMarketplace(url),
			})
		},
	}
	c.Flags().StringVar(&url, "url", "", "URL to classify")
	return c
}

type extractOutput struct {
	URL        string               `json:"url"`
	Platform   platform.Platform    `json:"platform"`
	Identifier *platform.Identifier `json:"identifier"`
}

func newExtractCmd() *cobra.Command {
	var (
		url         string
		platformArg string
	)

	c := &cobra.Command{
		Use:   "extract",
		Short: "Extract the product id from a product URL without following redirects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireURL(cmd, url); err != nil {
				return err
			}

			p := platform.Classify(url)
			if platformArg != "" {
				parsed, err := platform.Parse(platformArg)
				if err != nil {
					return err
				}
				p = parsed
			}

			out := extractOutput{URL: url, Platform: p}
			if id, ok := platform.Extract(p, url); ok {
				out.Identifier = &id
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if out.Identifier == nil {
				return fmt.Errorf("no %s product id in url", p)
			}
			return nil
		},
	}
	c.Flags().StringVar(&url, "url", "", "Product URL")
	c.Flags().StringVar(&platformArg, "platform", "", "Platform to extract for (defaults to classification)")
	return c
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
