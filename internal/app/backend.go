package app

import (
	"context"

	"github.com/thushan/qlite/internal/adapter/backend"
	"github.com/thushan/qlite/internal/config"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/logger"
	"github.com/thushan/qlite/internal/util"
)

// resolveBackend turns config into a descriptor. An explicit url always wins,
// otherwise the well known local ports are probed, narrowed to the configured
// family if there is one.
func resolveBackend(ctx context.Context, cfg *config.Config, log *logger.StyledLogger, dial backend.DialFunc) (domain.BackendDescriptor, error) {
	family, err := cfg.BackendFamily()
	if err != nil {
		return domain.BackendDescriptor{}, err
	}

	if cfg.Backend.URL != "" {
		if family == "" {
			family = domain.FamilyNative
		}
		desc, err := domain.ParseBackendURL(util.NormaliseBaseURL(cfg.Backend.URL), family)
		if err != nil {
			return domain.BackendDescriptor{}, err
		}
		log.InfoWithBackend("Using configured backend", desc.DisplayName(), "address", desc.Address(), "family", desc.Family)
		return desc, nil
	}

	candidates := backend.DefaultCandidates()
	if family != "" {
		narrowed := candidates[:0]
		for _, c := range candidates {
			if c.Family == family {
				narrowed = append(narrowed, c)
			}
		}
		candidates = narrowed
	}

	detector := backend.NewDetector(candidates, cfg.Backend.ProbeTimeout, log)
	if dial != nil {
		detector = detector.WithDialer(dial)
	}
	desc, found := detector.Detect(ctx)
	if !found && family != "" && len(candidates) > 0 {
		// the native fallback makes no sense when a family was asked for
		desc = candidates[0]
	}
	return desc, nil
}
