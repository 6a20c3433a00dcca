package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/bandreports/bandreports/internal/config"
	"github.com/bandreports/bandreports/internal/logger"
	"github.com/bandreports/bandreports/internal/manifest"
	"github.com/bandreports/bandreports/internal/media/images"
)

// ProvideImageStorage provides the downloaded image directory.
func ProvideImageStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)

	storage, err := images.NewStorage(cfg.Paths.Images)
	if err != nil {
		return nil, fmt.Errorf("image storage: %w", err)
	}
	do.MustInvoke[*logger.Logger](i).Debug("image storage ready", "dir", storage.Dir())
	return storage, nil
}

// ManifestHandle wraps the manifest store with shutdown capability.
// Store is nil when the manifest is disabled.
type ManifestHandle struct {
	Store *manifest.Store
}

// Shutdown implements do.Shutdownable.
func (h *ManifestHandle) Shutdown() error {
	if h.Store == nil {
		return nil
	}
	return h.Store.Close()
}

// ProvideManifest opens the manifest database unless it is disabled.
func ProvideManifest(i do.Injector) (*ManifestHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.ManifestEnabled() {
		log.Debug("manifest disabled")
		return &ManifestHandle{}, nil
	}

	store, err := manifest.Open(cfg.Paths.Manifest, log.Logger)
	if err != nil {
		return nil, err
	}
	log.Debug("manifest opened", "path", cfg.Paths.Manifest)

	return &ManifestHandle{Store: store}, nil
}
