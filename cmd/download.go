package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brogergvhs/chapterdl/internal/chapters"
	"github.com/brogergvhs/chapterdl/internal/config"
	"github.com/brogergvhs/chapterdl/internal/downloader"
	"github.com/brogergvhs/chapterdl/internal/output"
	"github.com/brogergvhs/chapterdl/internal/pipeline"
	"github.com/brogergvhs/chapterdl/internal/ui"
	"github.com/brogergvhs/chapterdl/internal/util"

	"github.com/spf13/cobra"
)

var (
	// selection
	flagURL     string
	flagChapter string
	flagRange   string
	flagList    string
	flagLimit   int

	// runtime
	flagMode         string
	flagOutput       string
	flagImageDelay   time.Duration
	flagChapterDelay time.Duration
	flagRetries      int
	flagDryRun       bool
	flagNoProgress   bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
	flagCloudflare bool
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download chapters as loose images (flat) or one PDF/CBZ/EPUB per chapter. Uses the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	// selection
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "chapter listing page URL")
	downloadCmd.Flags().StringVar(&flagChapter, "chapter", "", "download a single chapter by number (e.g. 5)")
	downloadCmd.Flags().StringVar(&flagRange, "range", "", "download chapters numbered within a range (e.g. 5-12)")
	downloadCmd.Flags().StringVar(&flagList, "list", "", "download specific chapter numbers (e.g. 1,3,5)")
	downloadCmd.Flags().IntVar(&flagLimit, "limit", 0, "process only the first N selected chapters")

	// runtime
	downloadCmd.Flags().StringVar(&flagMode, "mode", "", "output mode: flat, pdf, cbz or epub")
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "output folder")
	downloadCmd.Flags().DurationVar(&flagImageDelay, "image-delay", 0, "pause after each image request (e.g. 500ms)")
	downloadCmd.Flags().DurationVar(&flagChapterDelay, "chapter-delay", 0, "pause after each chapter (e.g. 1s)")
	downloadCmd.Flags().IntVar(&flagRetries, "retries", 0, "attempts per page request")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would be downloaded, don't download")
	downloadCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false, "disable progress bars")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
	downloadCmd.Flags().BoolVar(&flagCloudflare, "cloudflare", false, "use the Cloudflare bypass transport")

	rootCmd.AddCommand(downloadCmd)
}

// loadConfig merges the active profile with the flags set on cmd. Numeric
// flags only override when given, so "--image-delay 0" turns the pause off.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		BaseURL:          flagURL,
		Mode:             flagMode,
		Output:           flagOutput,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
		CloudflareBypass: flagCloudflare,
	}

	flags := cmd.Flags()
	if flags.Changed("limit") {
		opts.Limit = &flagLimit
	}
	if flags.Changed("image-delay") {
		opts.ImageDelay = &flagImageDelay
	}
	if flags.Changed("chapter-delay") {
		opts.ChapterDelay = &flagChapterDelay
	}
	if flags.Changed("retries") {
		opts.Retries = &flagRetries
	}

	cfg, usedPath, err := config.LoadMerged(opts)
	if err != nil {
		return nil, err
	}

	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing --url and no base_url in config")
	}

	return cfg, nil
}

func runDownload(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logSvc := ui.NewLogger(cfg.Debug)

	fmt.Println("Full config:")
	cfg.Print()
	fmt.Println()

	client, err := newClient(cfg, logSvc)
	if err != nil {
		return err
	}

	scr, err := newScraper(cfg, client, logSvc)
	if err != nil {
		return err
	}

	ctx, cancel := util.InterruptContext(context.Background(), cfg.Output)
	defer cancel()

	dl := downloader.New(client, cfg.Timeout)
	asm, err := output.New(cfg.Mode, dl, output.Options{
		Root:         cfg.Output,
		MetadataFile: cfg.MetadataFile,
		ImageDelay:   cfg.ImageDelay,
		Log:          logSvc,
	})
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		IndexURL: cfg.BaseURL,
		Root:     cfg.Output,
		Selection: chapters.Selection{
			Chapter: flagChapter,
			Range:   flagRange,
			List:    flagList,
			Limit:   cfg.Limit,
		},
		ChapterDelay: cfg.ChapterDelay,
	}

	if flagDryRun {
		selected, err := pipeline.New(scr, asm, logSvc, opts).Chapters(ctx)
		if err != nil {
			return err
		}
		printDryRun(selected, asm)
		return nil
	}

	var pm *ui.MPBProgressManager
	if !flagNoProgress && !cfg.Debug {
		pm = ui.NewProgressManager(os.Stdout)
		opts.NewProgress = func(label string) downloader.Progress {
			return pm.Register(label)
		}
	}

	summary, runErr := pipeline.New(scr, asm, logSvc, opts).Run(ctx)
	if pm != nil {
		pm.Close()
	}

	if runErr != nil {
		if n := util.CleanupPartialFiles(cfg.Output); n > 0 {
			logSvc.Infof("Removed %d unfinished files", n)
		}
		util.RemoveIfEmpty(cfg.Output)
	}

	ui.PrintSummary(os.Stdout, summary)
	if runErr != nil {
		return runErr
	}

	fmt.Println("\nAll done.")
	return nil
}

func printDryRun(selected []chapters.Chapter, asm output.Assembler) {
	fmt.Printf("Dry-run: %d chapters selected.\n\n", len(selected))
	for _, ch := range selected {
		state := ""
		if path := asm.Artifact(ch); path != "" && util.Exists(path) {
			state = "  (exists)"
		}
		fmt.Printf("%4d) %-14s%s\n      %s\n", ch.Index, ch.DisplayName(), state, ch.URL)
	}
}
