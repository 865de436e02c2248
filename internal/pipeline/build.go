package pipeline

import (
	"log/slog"

	"github.com/dgallion1/bookfetch/internal/cache"
	"github.com/dgallion1/bookfetch/internal/catalog"
	"github.com/dgallion1/bookfetch/internal/config"
	"github.com/dgallion1/bookfetch/internal/download"
	"github.com/dgallion1/bookfetch/internal/parser"
	"github.com/dgallion1/bookfetch/internal/stats"
)

// New assembles the production pipeline from cfg: LibGen search and mirror
// resolution, the retrying downloader, and the parallel extraction engine.
func New(cfg config.Config, log *slog.Logger) *Service {
	lg := catalog.NewLibGen(cfg.CatalogURL, cfg.CatalogTimeout)
	dl := download.New(download.Config{
		Timeout:     cfg.DownloadTimeout,
		MaxBytes:    cfg.MaxDownloadBytes,
		MaxAttempts: cfg.DownloadMaxAttempts,
		Backoff:     cfg.DownloadBackoff,
		MaxBackoff:  cfg.DownloadMaxBackoff,
	}, log)

	return NewService(Deps{
		Search:  catalog.NewResolver(lg, cfg.CatalogFormat, log),
		Sources: catalog.NewSelector(lg, cfg.MirrorPriority, log),
		Fetch:   dl,
		Decode: parser.Decoder{
			ValidatePDF:       cfg.PDFValidate,
			FallbackPdftotext: cfg.PDFFallbackPdftotext,
		},
		Extract: parser.NewEngine(cfg.ExtractWorkers, log),
		Cache:   cache.New(cfg.CacheMaxEntries, log),
		Stats:   stats.NewStages(cfg.StatsWindow),
		Closers: []func(){lg.Close, dl.Close},
	}, Options{
		WindowSize: cfg.WindowSize,
		Timeout:    cfg.PipelineTimeout,
		Format:     cfg.CatalogFormat,
	}, log)
}
