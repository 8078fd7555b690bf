package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/printdeck/studio/backend-go/internal/asset"
	"github.com/printdeck/studio/backend-go/internal/auth"
	"github.com/printdeck/studio/backend-go/internal/config"
	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/export"
	"github.com/printdeck/studio/backend-go/internal/render"
)

// Build information
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "studio",
		Short: "Render, proof and inspect print designs from the command line",
		Long: `studio works on scene files (JSON or YAML) outside the editor server.
It renders them to PNG, JPEG or PDF with the same renderer the editor uses
for previews, prints proof sheets, and issues API tokens for development.`,
		Example: `  studio sample --out card.yaml
  studio render card.yaml --format pdf --out card.pdf
  studio render card.json --assets ./data/assets --format jpg --quality 2
  studio token --subject alice --ttl 2h`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")

	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newProofCommand())
	rootCmd.AddCommand(newPresetsCommand())
	rootCmd.AddCommand(newSampleCommand())
	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadScene decodes a scene file and, when assetDir is set, reattaches image
// pixels from the asset store.
func loadScene(path, assetDir string) (*document.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	scene, err := document.DecodeScene(path, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if assetDir != "" {
		store, err := asset.NewStore(assetDir)
		if err != nil {
			return nil, err
		}
		n := store.Rehydrate(scene)
		slog.Debug("rehydrated images", "count", n, "dir", assetDir)
	}
	return scene, nil
}

func newRenderCommand() *cobra.Command {
	var (
		opts      export.Options
		format    string
		out       string
		assetDir  string
		maxPixels int
		pdfScale  float64
	)

	cmd := &cobra.Command{
		Use:   "render [flags] <scene-file>",
		Short: "Render a scene file to PNG, JPEG or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := loadScene(args[0], assetDir)
			if err != nil {
				return err
			}

			opts.Format = export.Format(format)
			if opts.Name == "" {
				opts.Name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			exporter := export.NewExporter(render.New(render.WithMaxPixels(maxPixels)), pdfScale)
			res, err := exporter.Export(cmd.Context(), scene, opts)
			if err != nil {
				return err
			}

			if out == "" {
				out = res.FileName
			}
			if err := os.WriteFile(out, res.Data, 0o644); err != nil {
				return err
			}
			slog.Info("rendered", "file", out, "width", res.Width, "height", res.Height, "bytes", len(res.Data))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "png", "output format: png, jpg or pdf")
	cmd.Flags().Float64VarP(&opts.Quality, "quality", "q", 0, "raster scale factor in [0.5, 3]; ignored for pdf")
	cmd.Flags().StringVar(&opts.Name, "name", "", "file name stem (defaults to the scene file's)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (defaults to <name>.<format>)")
	cmd.Flags().StringVar(&assetDir, "assets", "", "asset directory to load image pixels from")
	cmd.Flags().IntVar(&maxPixels, "max-pixels", 40_000_000, "refuse renders larger than this many pixels")
	cmd.Flags().Float64Var(&pdfScale, "pdf-scale", export.DefaultPDFScale, "raster scale of the PDF page image")
	return cmd
}

func newProofCommand() *cobra.Command {
	var (
		out      string
		assetDir string
		name     string
		category string
		author   string
	)

	cmd := &cobra.Command{
		Use:   "proof [flags] <scene-file>",
		Short: "Print an A4 proof sheet for a scene file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := loadScene(args[0], assetDir)
			if err != nil {
				return err
			}

			thumb, err := export.ThumbnailPNG(render.New(), scene, 300, 300)
			if err != nil {
				return err
			}
			pdf, err := export.ProofSheet(export.ProofInfo{
				Name:      name,
				Category:  category,
				Author:    author,
				Canvas:    scene.Canvas(),
				Counts:    scene.CountByKind(),
				Thumbnail: thumb,
				CreatedAt: time.Now(),
			})
			if err != nil {
				return err
			}
			return os.WriteFile(out, pdf, 0o644)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "proof.pdf", "output path")
	cmd.Flags().StringVar(&assetDir, "assets", "", "asset directory to load image pixels from")
	cmd.Flags().StringVar(&name, "name", "", "design name printed on the sheet")
	cmd.Flags().StringVar(&category, "category", "", "design category printed on the sheet")
	cmd.Flags().StringVar(&author, "author", "", "author printed on the sheet")
	return cmd
}

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the canvas size presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, p := range document.Presets() {
				marker := ""
				if p.Slug == document.DefaultPreset {
					marker = " (default)"
				}
				fmt.Fprintf(w, "%-16s %6.0f x %-6.0f %s%s\n", p.Slug, p.Width, p.Height, p.Name, marker)
			}
			return nil
		},
	}
}

func newSampleCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the sample business-card scene as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := encodeScene(document.NewSampleScene(), out)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file; .yaml/.yml writes YAML, anything else JSON (default stdout)")
	return cmd
}

// encodeScene writes YAML for .yaml/.yml names and indented JSON otherwise.
func encodeScene(scene *document.Scene, name string) ([]byte, error) {
	data, err := json.MarshalIndent(scene, "", "  ")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
		return yaml.Marshal(tree)
	}
	return append(data, '\n'), nil
}

func newTokenCommand() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tok, err := auth.NewService(cfg.JWTSecret, cfg.AuthRequired).IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (user id)")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	cmd.MarkFlagRequired("subject")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
