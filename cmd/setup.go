package cmd

import (
	"net/http"

	"github.com/brogergvhs/chapterdl/internal/config"
	"github.com/brogergvhs/chapterdl/internal/providers/generic"
	"github.com/brogergvhs/chapterdl/internal/ui"
	"github.com/brogergvhs/chapterdl/internal/util"
)

func newClient(cfg *config.Config, log *ui.Logger) (*http.Client, error) {
	return util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          cfg.Timeout,
		UserAgent:        cfg.UserAgent,
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      log,
	})
}

func newScraper(cfg *config.Config, client *http.Client, log *ui.Logger) (*generic.Scraper, error) {
	return generic.NewScraper(client, log, generic.Contract{
		Version:        generic.ContractVersion,
		ChapterMarker:  cfg.ChapterMarker,
		ChapterPattern: cfg.ChapterPattern,
		ImageMatch:     cfg.ImageMatch,
		TitleSelector:  cfg.TitleSelector,
	}, cfg.Retries)
}
