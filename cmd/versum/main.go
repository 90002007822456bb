// Command versum queries a compiled artifact directory: search, retrieve
// context packs, assemble prompts, browse interactively, or inspect
// build statistics.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/screenager/versum/internal/diag"
	"github.com/screenager/versum/internal/query"
	"github.com/screenager/versum/internal/rank/hybrid"
	"github.com/screenager/versum/internal/reader"
	"github.com/screenager/versum/internal/tui"
)

var defaultArtifactDir = ".versum"

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if os.Getenv("VERSUM_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	root := &cobra.Command{
		Use:   "versum",
		Short: "Query a compiled versum corpus",
		Long:  "versum — search, retrieve, and assemble prompts over an immutable corpus built by versumc.",
	}

	var cfg struct {
		ArtifactDir    string  `toml:"artifact-dir"`
		Limit          int     `toml:"limit"`
		HeadroomTokens int     `toml:"headroom-tokens"`
		WeightLexical  float64 `toml:"weight-lexical"`
		WeightSemantic float64 `toml:"weight-semantic"`
	}
	if b, err := os.ReadFile(".versum.toml"); err == nil {
		_ = toml.Unmarshal(b, &cfg)
	}
	if cfg.ArtifactDir != "" {
		defaultArtifactDir = cfg.ArtifactDir
	}

	var artifactDir string
	root.PersistentFlags().StringVar(&artifactDir, "artifact-dir", defaultArtifactDir, "path to a compiled corpus directory")

	diagSink := func() diag.Sink {
		return func(d diag.Diagnostic) {
			log.Warn().Str("kind", string(d.Kind)).Str("span", d.SpanID).Msg(d.Message)
		}
	}

	openReader := func() (*reader.Reader, error) {
		return reader.Open(artifactDir, diagSink())
	}

	// ---- versum search <query> ---------------------------------------------
	var jsonOut bool
	var limit int
	var rankFlag string
	var weightLex, weightSem float64
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the corpus and print ranked spans",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			r, err := openReader()
			if err != nil {
				return err
			}

			opts := query.SearchOptions{Limit: &limit, Rank: rankMode(rankFlag)}
			if opts.Rank == query.RankHybrid {
				opts.Hybrid = &hybrid.Options{WeightLexical: weightLex, WeightSemantic: weightSem, Normalize: true}
			}

			results, err := r.Search(q, opts)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(results)
			}
			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for i, res := range results {
				sp, _ := r.GetSpan(res.SpanID)
				heading := strings.Join(sp.HeadingPath, " › ")
				fmt.Printf("%2d  %.3f  %s  %s\n    %s\n\n", i+1, res.Score, res.SpanID, heading, sp.Text)
			}
			return nil
		},
	}
	searchCmd.Flags().BoolVar(&jsonOut, "json", false, "output results as JSON")
	searchCmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	searchCmd.Flags().StringVar(&rankFlag, "rank", "tfidf", "ranking mode: none|tfidf|hybrid")
	searchCmd.Flags().Float64Var(&weightLex, "weight-lexical", hybrid.DefaultWeightLexical, "hybrid lexical weight")
	searchCmd.Flags().Float64Var(&weightSem, "weight-semantic", hybrid.DefaultWeightSemantic, "hybrid semantic weight")
	root.AddCommand(searchCmd)

	// ---- versum retrieve <query> --------------------------------------------
	var retrieveLimit, perHitNeighbors int
	var expandFlag string
	var maxTokens int
	retrieveCmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Build retrieval packs for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			r, err := openReader()
			if err != nil {
				return err
			}

			opts := query.DefaultRetrieveOptions()
			opts.Limit = retrieveLimit
			opts.PerHitNeighbors = perHitNeighbors
			if expandFlag == "section" {
				opts.Expand = query.ExpandSection
			}
			if maxTokens > 0 {
				opts.MaxTokens = &maxTokens
			}

			packs, err := r.Retrieve(q, opts)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(packs)
			}
			for i, p := range packs {
				fmt.Printf("── pack %d: %s (%d chars) ──\n%s\n\n", i+1, p.PackID, p.Meta.CharCount, p.Text)
			}
			return nil
		},
	}
	retrieveCmd.Flags().BoolVar(&jsonOut, "json", false, "output packs as JSON")
	retrieveCmd.Flags().IntVar(&retrieveLimit, "limit", query.DefaultRetrieveOptions().Limit, "maximum packs")
	retrieveCmd.Flags().IntVar(&perHitNeighbors, "neighbors", query.DefaultRetrieveOptions().PerHitNeighbors, "neighbors per hit in neighbors mode")
	retrieveCmd.Flags().StringVar(&expandFlag, "expand", "neighbors", "expansion mode: neighbors|section")
	retrieveCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "character budget for the pack set (0 = unbounded)")
	root.AddCommand(retrieveCmd)

	// ---- versum prompt <question> -------------------------------------------
	var promptLimit int
	var headroom int
	promptCmd := &cobra.Command{
		Use:   "prompt <question>",
		Short: "Retrieve context and assemble a cited prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			r, err := openReader()
			if err != nil {
				return err
			}

			opts := query.DefaultRetrieveOptions()
			opts.Limit = promptLimit
			packs, err := r.Retrieve(question, opts)
			if err != nil {
				return err
			}

			req := query.DefaultPromptRequest()
			req.Question = question
			req.Packs = packs
			req.HeadroomTokens = headroom
			out := r.AssemblePrompt(req)

			if jsonOut {
				return printJSON(out)
			}
			fmt.Println("── system ──")
			fmt.Println(out.System)
			fmt.Println("── user ──")
			fmt.Println(out.User)
			return nil
		},
	}
	promptCmd.Flags().BoolVar(&jsonOut, "json", false, "output the assembled prompt as JSON")
	promptCmd.Flags().IntVar(&promptLimit, "limit", query.DefaultRetrieveOptions().Limit, "maximum packs to retrieve")
	promptCmd.Flags().IntVar(&headroom, "headroom-tokens", query.DefaultPromptRequest().HeadroomTokens, "tokens reserved for the model's reply")
	root.AddCommand(promptCmd)

	// ---- versum tui ----------------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive corpus browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openReader()
			if err != nil {
				return err
			}
			m := tui.New(r)
			p := tea.NewProgram(m, tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	})

	// ---- versum stats --------------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show corpus build statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openReader()
			if err != nil {
				return err
			}
			mf := r.GetManifest()
			fmt.Printf("id:        %s\n", mf.ID)
			fmt.Printf("title:     %s\n", mf.Title)
			fmt.Printf("spans:     %d\n", r.GetSpanCount())
			if nm := r.GetNodeMap(); nm != nil {
				fmt.Printf("chapters:  %d\n", len(nm.Chapters))
				fmt.Printf("sections:  %d\n", len(nm.Sections))
			}
			if br := r.GetBuildReport(); br != nil {
				fmt.Printf("avg chars: %.1f\n", br.Summary.AverageChars)
				fmt.Printf("p10/p50/p90: %d/%d/%d\n", br.LengthStats.P10, br.LengthStats.P50, br.LengthStats.P90)
				fmt.Printf("short/long/dup spans: %d/%d/%d\n", br.Warnings.ShortSpans, br.Warnings.LongSpans, br.Warnings.DuplicateSpans)
			}
			fmt.Printf("lexicon built:    %t\n", r.LexiconBuilt())
			if enabled, capacity, length := r.TfCacheStats(); enabled {
				fmt.Printf("tf cache:         enabled, %d/%d entries\n", length, capacity)
			} else {
				fmt.Printf("tf cache:         disabled\n")
			}
			return nil
		},
	})

	// .versum.toml values replace the built-in flag defaults; flags given
	// on the command line still win.
	if cfg.Limit > 0 {
		limit, retrieveLimit, promptLimit = cfg.Limit, cfg.Limit, cfg.Limit
	}
	if cfg.HeadroomTokens > 0 {
		headroom = cfg.HeadroomTokens
	}
	if cfg.WeightLexical > 0 {
		weightLex = cfg.WeightLexical
	}
	if cfg.WeightSemantic > 0 {
		weightSem = cfg.WeightSemantic
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rankMode(flag string) query.RankMode {
	switch flag {
	case "none":
		return query.RankNone
	case "hybrid":
		return query.RankHybrid
	default:
		return query.RankTFIDF
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
