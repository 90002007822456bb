// Command versumc compiles a source document into a versum artifact
// directory: manifest.json, spans.jsonl, nodeMap.json, buildReport.json.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/screenager/versum/internal/compile"
	"github.com/screenager/versum/internal/watcher"
)

var defaultOutDir = ".versum"

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if os.Getenv("VERSUM_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	root := &cobra.Command{
		Use:   "versumc",
		Short: "Compile a source document into a versum corpus",
		Long:  "versumc — builds the immutable manifest/spans/nodeMap/buildReport artifact set a versum Reader consumes.",
	}

	var cfg struct {
		OutDir string `toml:"out-dir"`
	}
	if b, err := os.ReadFile(".versum.toml"); err == nil {
		if err := toml.Unmarshal(b, &cfg); err == nil && cfg.OutDir != "" {
			defaultOutDir = cfg.OutDir
		}
	}

	var format string
	var title string

	resolveFormat := func() compile.Format {
		switch format {
		case "md", "markdown":
			return compile.FormatMarkdown
		case "txt", "text":
			return compile.FormatText
		default:
			return "" // triggers extension-based detection
		}
	}

	// ---- versumc compile <source> [outdir] ---------------------------------
	compileCmd := &cobra.Command{
		Use:   "compile <source> [outdir]",
		Short: "Compile a source document into an artifact directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			outDir := defaultOutDir
			if len(args) == 2 {
				outDir = args[1]
			}

			result, err := compile.Build(compile.Options{SourcePath: source, Format: resolveFormat()})
			if err != nil {
				return err
			}
			if title != "" {
				result.Manifest.Title = title
			}
			if err := compile.Write(outDir, result); err != nil {
				return err
			}
			log.Info().
				Str("source", source).
				Str("outDir", outDir).
				Int("spans", result.Manifest.SpanCount).
				Str("format", result.Manifest.Format).
				Msg("compiled corpus")
			return nil
		},
	}
	compileCmd.Flags().StringVar(&format, "format", "auto", "source format: auto|md|txt")
	compileCmd.Flags().StringVar(&title, "title", "", "override the detected manifest title")
	root.AddCommand(compileCmd)

	// ---- versumc watch <source> [outdir] -----------------------------------
	watchCmd := &cobra.Command{
		Use:   "watch <source> [outdir]",
		Short: "Compile, then recompile on every save",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			outDir := defaultOutDir
			if len(args) == 2 {
				outDir = args[1]
			}

			build := watcher.BuildAndWrite(outDir, compile.Options{Format: resolveFormat()})
			logged := func(sourcePath string) error {
				if err := build(sourcePath); err != nil {
					return err
				}
				log.Info().Str("source", sourcePath).Str("outDir", outDir).Msg("recompiled corpus")
				return nil
			}

			if err := logged(source); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w, err := watcher.New(logged)
			if err != nil {
				return err
			}

			done := make(chan struct{})
			go func() {
				<-ctx.Done()
				close(done)
			}()

			log.Info().Str("source", source).Msg("watching for changes — ctrl+c to stop")
			return w.Watch(source, done)
		},
	}
	root.AddCommand(watchCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
