package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/x/term"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"assetlens/analysis"
	"assetlens/asset"
	"assetlens/config"
	"assetlens/gemini"
	"assetlens/history"
	"assetlens/images"
	"assetlens/logging"
	"assetlens/tui"
)

// Build info - set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// options are the parsed command-line flags
type options struct {
	configFile string
	provider   string
	model      string
	baseURL    string

	jsonOut    bool
	csvFile    string
	plain      bool
	noSave     bool
	permissive bool
	setup      bool

	listHistory  bool
	showID       string
	deleteID     string
	clearHistory bool

	version bool
	sources []string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("assetlens", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: assetlens [flags] [image|dir|glob ...]\n\n")
		fmt.Fprintf(stderr, "Analyzes screenshots of bank, broker and wallet apps into a portfolio summary.\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configFile, "config", "", "Config file (TOML); defaults to the user config dir and ./assetlens.toml")
	fs.StringVar(&opts.provider, "provider", "", "Provider: STRUCTURED_VISION or OPENAI_COMPATIBLE")
	fs.StringVar(&opts.model, "model", "", "Model name")
	fs.StringVar(&opts.baseURL, "base-url", "", "Provider base URL")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the result as JSON instead of the dashboard")
	fs.StringVar(&opts.csvFile, "csv", "", "Also write the breakdown to this CSV file")
	fs.BoolVar(&opts.plain, "plain", false, "Use a simple spinner instead of the full progress view")
	fs.BoolVar(&opts.noSave, "no-save", false, "Do not record the result in history")
	fs.BoolVar(&opts.permissive, "permissive", false, "Accept results that fail validation")
	fs.BoolVar(&opts.setup, "setup", false, "Run the interactive provider setup")
	fs.BoolVar(&opts.listHistory, "history", false, "List saved analyses")
	fs.StringVar(&opts.showID, "show", "", "Show a saved analysis by ID or prefix")
	fs.StringVar(&opts.deleteID, "delete", "", "Delete a saved analysis by ID or prefix")
	fs.BoolVar(&opts.clearHistory, "clear-history", false, "Delete all saved analyses")
	fs.BoolVar(&opts.version, "version", false, "Print version information")
	fs.BoolVar(&opts.version, "v", false, "Print version information (short)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.sources = fs.Args()

	if opts.provider != "" {
		p, ok := analysis.ParseProvider(opts.provider)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", opts.provider)
		}
		opts.provider = string(p)
	}

	return opts, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, tui.ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(2)
	}

	if opts.version {
		fmt.Printf("assetlens %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		fmt.Printf("  go:     %s\n", runtime.Version())
		fmt.Printf("  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Load .env file if it exists (won't error if missing)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, tui.RenderError(err, terminalWidth()))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	files := config.DefaultFiles()
	if opts.configFile != "" {
		files = []string{opts.configFile}
	}
	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return err
	}
	config.ApplyFlagOverrides(cfg, opts.provider, opts.model, opts.baseURL)
	if opts.permissive {
		cfg.Analysis.Permissive = true
	}

	logger, closeLog, err := logging.Open(cfg.LoggerConfig(), cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closeLog()

	store := history.Open(cfg.History.Path, cfg.History.Limit)

	switch {
	case opts.listHistory:
		results, err := store.Load()
		if err != nil {
			return err
		}
		fmt.Println(tui.RenderHistory(results))
		return nil
	case opts.showID != "":
		r, err := store.Get(opts.showID)
		if err != nil {
			return err
		}
		return present(r, opts)
	case opts.deleteID != "":
		if err := store.Delete(opts.deleteID); err != nil {
			return err
		}
		fmt.Println(tui.SuccessStyle.Render("Deleted " + opts.deleteID))
		return nil
	case opts.clearHistory:
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println(tui.SuccessStyle.Render("History cleared"))
		return nil
	}

	interactive := isTerminal(os.Stdin) && isTerminal(os.Stdout) && !opts.jsonOut

	if opts.setup || (interactive && !hasCredential(cfg)) {
		if err := runSetup(cfg, opts.configFile); err != nil {
			return err
		}
	}

	sources := opts.sources
	if len(sources) == 0 {
		if !interactive {
			return fmt.Errorf("no screenshots given; pass files, directories or glob patterns")
		}
		if sources, err = askForSources(); err != nil {
			return err
		}
	}

	paths, err := images.Discover(sources)
	if err != nil {
		return err
	}
	if err := images.Validate(paths); err != nil {
		return err
	}

	analyzer := newAnalyzer(cfg, logger)
	srcs := make([]images.Source, len(paths))
	names := make([]string, len(paths))
	for i, p := range paths {
		srcs[i] = images.FromFile(p)
		names[i] = filepath.Base(p)
	}
	acfg := cfg.AnalysisSettings()

	analyze := func(ctx context.Context, progress func(analysis.ProgressUpdate)) (*asset.AnalysisResult, error) {
		return analyzer.AnalyzeWithProgress(ctx, srcs, acfg, progress)
	}

	var result *asset.AnalysisResult
	switch {
	case !interactive:
		result, err = analyze(ctx, nil)
	case opts.plain:
		result, err = runWithSpinner(ctx, len(paths), analyze)
	default:
		result, err = tui.RunAnalysisUI(ctx, string(acfg.Provider), names, analyze)
	}
	if err != nil {
		return analysis.Classify(err)
	}

	if !opts.noSave {
		if err := store.Append(result); err != nil {
			logger.Warn().Err(err).Str("path", store.Path()).Msg("failed to save history")
		}
	}

	return present(result, opts)
}

func newAnalyzer(cfg *config.Config, logger zerolog.Logger) *analysis.Analyzer {
	opts := []analysis.Option{
		analysis.WithDefaultCredential(config.EnvCredential{}),
		analysis.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		analysis.WithLogger(logger),
	}
	if cfg.Analysis.Permissive {
		opts = append(opts, analysis.WithPermissiveOutput())
	}
	return analysis.New(opts...)
}

func runWithSpinner(ctx context.Context, count int, analyze tui.AnalyzeFunc) (*asset.AnalysisResult, error) {
	var result *asset.AnalysisResult
	var analyzeErr error

	err := spinner.New().
		Title(fmt.Sprintf("Analyzing %d screenshots...", count)).
		Context(ctx).
		Action(func() {
			result, analyzeErr = analyze(ctx, nil)
		}).
		Run()
	if analyzeErr != nil {
		return nil, analyzeErr
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// present writes the result as JSON or as the dashboard, plus the optional CSV
func present(r *asset.AnalysisResult, opts *options) error {
	if opts.csvFile != "" {
		if err := history.WriteCSVFile(opts.csvFile, r); err != nil {
			return err
		}
	}

	if opts.jsonOut {
		return writeJSON(os.Stdout, r)
	}

	fmt.Println(tui.RenderDashboard(r, terminalWidth()))
	if opts.csvFile != "" {
		fmt.Println(tui.MutedStyle.Render("CSV written to " + opts.csvFile))
	}
	return nil
}

func writeJSON(w io.Writer, r *asset.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func hasCredential(cfg *config.Config) bool {
	return cfg.Analysis.APIKey != "" || config.EnvCredential{}.DefaultAPIKey() != ""
}

// askForSources prompts for screenshot paths when none were given
func askForSources() ([]string, error) {
	var input string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Which screenshots should be analyzed?").
			Description("Files, a folder or a glob pattern, separated by spaces").
			Placeholder("~/Pictures/assets/*.png").
			Value(&input).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("enter at least one path")
				}
				return nil
			}),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil {
		return nil, err
	}

	return splitSources(input), nil
}

// splitSources splits user input on whitespace and expands a leading ~
func splitSources(input string) []string {
	home, _ := os.UserHomeDir()
	fields := strings.Fields(input)
	for i, f := range fields {
		if home != "" && (f == "~" || strings.HasPrefix(f, "~/")) {
			fields[i] = filepath.Join(home, strings.TrimPrefix(f, "~"))
		}
	}
	return fields
}

// runSetup asks for provider settings and optionally saves them
func runSetup(cfg *config.Config, configFile string) error {
	a := &cfg.Analysis

	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Which provider?").
			Options(
				huh.NewOption("Gemini (structured vision)", string(analysis.ProviderStructuredVision)),
				huh.NewOption("OpenAI-compatible endpoint", string(analysis.ProviderOpenAICompatible)),
			).
			Value(&a.Provider),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	if err != nil {
		return err
	}

	keyHelp := "Stored in the config file with mode 0600"
	if a.Provider == string(analysis.ProviderStructuredVision) {
		keyHelp = gemini.GetAPIKeyHelp()
	}
	fields := []huh.Field{
		huh.NewInput().
			Title("API key").
			Description(keyHelp).
			EchoMode(huh.EchoModePassword).
			Value(&a.APIKey),
	}
	if a.Provider == string(analysis.ProviderOpenAICompatible) {
		fields = append(fields,
			huh.NewInput().Title("Base URL").Placeholder("https://api.openai.com/v1").Value(&a.BaseURL),
			huh.NewInput().Title("Model").Placeholder("gpt-4o").Value(&a.Model),
			huh.NewInput().
				Title("Vision model (optional)").
				Description("Set to transcribe each screenshot with a separate vision model").
				Value(&a.VisionModel),
		)
	}

	save := true
	fields = append(fields, huh.NewConfirm().Title("Save these settings?").Value(&save))

	if err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin()).Run(); err != nil {
		return err
	}
	if !save {
		return nil
	}

	path := configFile
	if path == "" {
		path = filepath.Join(config.DefaultDir(), "config.toml")
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Println(tui.MutedStyle.Render("Settings saved to " + path))
	return nil
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// terminalWidth is the stdout width, then $COLUMNS, then 100
func terminalWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return 100
}
