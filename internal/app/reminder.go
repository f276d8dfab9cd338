package app

import (
	"context"
	"fmt"
	"os"

	"github.com/Adda-Baaj/board-reminder/internal/config"
	"github.com/Adda-Baaj/board-reminder/internal/engine"
	"github.com/Adda-Baaj/board-reminder/internal/logger"
	"github.com/Adda-Baaj/board-reminder/internal/storage"
	"github.com/Adda-Baaj/board-reminder/pkg/boards"
	"github.com/Adda-Baaj/board-reminder/pkg/channels"
)

// Reminder is the board reminder runtime. It owns the scrape client, the
// notification dispatcher and the recipient directory, and hands them to the
// poll engine.
type Reminder struct {
	cfg        *config.Config
	boards     *boards.Client
	dispatcher *channels.Dispatcher
	engine     *engine.Engine
	log        logger.Logger
	store      storage.Store
}

// NewReminder builds a reminder runtime from config files.
func NewReminder(ctx context.Context, cfg *config.Config, log logger.Logger) (*Reminder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	sources, err := boards.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	sourceList := sources.All()
	sourceIDs := make([]string, 0, len(sourceList))
	for _, s := range sourceList {
		sourceIDs = append(sourceIDs, s.ID)
	}
	log.InfoObj("sources loaded", "sources_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	storeOpts := storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.StoragePath(), storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.StoragePath(),
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	dispatcher, err := buildDispatcher(ctx, cfg, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	client := boards.DefaultClient(sources, nil)
	eng := engine.New(client, dispatcher, log, engine.Options{
		PollInterval:           cfg.PollInterval,
		WatchdogInterval:       cfg.WatchdogInterval,
		NumMeta:                cfg.NumMeta,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		ShutdownTimeout:        cfg.ShutdownTimeout,
	})

	return &Reminder{
		cfg:        cfg,
		boards:     client,
		dispatcher: dispatcher,
		engine:     eng,
		log:        log,
		store:      store,
	}, nil
}

func buildDispatcher(ctx context.Context, cfg *config.Config, store storage.Store, log logger.Logger) (*channels.Dispatcher, error) {
	channelReg, err := channels.LoadRegistry(cfg.ChannelsFile)
	if err != nil {
		return nil, fmt.Errorf("load channels registry: %w", err)
	}

	enabled := channelReg.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no channels enabled in %s", cfg.ChannelsFile)
	}

	chs, err := channels.BuildAll(ctx, channels.DefaultRegistry(), enabled, channels.Deps{
		Log:       log,
		Directory: store,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("build channels: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, chCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   chCfg.ID,
			"type": chCfg.Type,
		})
	}
	log.InfoObj("channels registry loaded", "channels_meta", map[string]any{
		"count":    len(summaries),
		"channels": summaries,
	})

	return channels.NewDispatcher(chs, log), nil
}

// Run validates the board references and polls them until ctx is cancelled.
// keywordLists[i] holds the keywords for boardRefs[i].
func (r *Reminder) Run(ctx context.Context, keywordLists [][]string, boardRefs []string) error {
	if r == nil || r.engine == nil {
		return fmt.Errorf("reminder is not initialized")
	}
	defer r.close()

	for _, ref := range boardRefs {
		if _, _, _, err := r.boards.Resolve(ref); err != nil {
			return &engine.ConfigurationError{Reason: fmt.Sprintf("board %q", ref), Err: err}
		}
	}

	r.log.InfoObj("reminder starting", "reminder_state", map[string]any{
		"boards":   boardRefs,
		"channels": r.dispatcher.IDs(),
		"receiver": r.cfg.Receiver,
	})

	return r.engine.Run(ctx, keywordLists, boardRefs, r.cfg.Receiver)
}

// close releases channel connections and the storage backend, logging any errors encountered.
func (r *Reminder) close() {
	if r.dispatcher != nil {
		if err := r.dispatcher.Close(); err != nil {
			r.log.ErrorObj("channel close failed", "error", err)
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
