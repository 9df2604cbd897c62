package commands

import (
	"fmt"

	"github.com/bryanchriswhite/DonaldSwap/internal/config"
	"github.com/bryanchriswhite/DonaldSwap/internal/journal"
	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"github.com/bryanchriswhite/DonaldSwap/internal/obs"
	"github.com/bryanchriswhite/DonaldSwap/internal/state"
	"github.com/bryanchriswhite/DonaldSwap/internal/swapper"
	"github.com/bryanchriswhite/DonaldSwap/internal/window"
)

// rotation is everything a long-running command needs to swap games.
type rotation struct {
	configMgr *config.Manager
	desktop   window.Desktop
	locator   *window.Locator
	store     *state.Store
	scheduler *swapper.Scheduler
	journal   *journal.DB
}

func newRotation(configMgr *config.Manager) (*rotation, error) {
	log := logger.WithComponent("main")

	desktop, err := window.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open window backend: %w", err)
	}
	log.Info().Str("backend", desktop.Name()).Msg("Window backend ready")

	r := &rotation{
		configMgr: configMgr,
		desktop:   desktop,
		locator:   window.NewLocator(desktop),
		store:     state.NewStore(),
	}

	opts := []swapper.Option{
		swapper.WithSceneSwitcher(obs.NewClient(func() config.OBSConfig {
			return configMgr.Get().OBS
		})),
	}

	cfg := configMgr.Get()
	if cfg.Journal.Enabled {
		db, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Warn().Err(err).Msg("Swap journal unavailable, continuing without it")
		} else {
			r.journal = db
			opts = append(opts, swapper.WithRecorder(journal.NewRepository(db)))
			log.Info().Msg("Swap journal enabled")
		}
	}

	r.scheduler = swapper.New(configMgr, r.store, r.locator, window.NewFocusAcquirer(desktop), desktop, opts...)
	return r, nil
}

func (r *rotation) Close() {
	if r.journal != nil {
		r.journal.Close()
	}
	r.desktop.Close()
}
