package service

import (
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/subgate/internal/catalog/domain"
	"github.com/smallbiznis/subgate/internal/config"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Service resolves plan identifiers against a catalog file with environment
// variable fallback. The catalog file can be reloaded without a restart.
type Service struct {
	log     *zap.Logger
	current atomic.Value // holds map[string]domain.Plan keyed by normalized identifier
}

// NewService loads the plan catalog and starts watching for changes.
func NewService(cfg config.Config, log *zap.Logger) (domain.Service, error) {
	s := &Service{log: log}
	s.current.Store(map[string]domain.Plan{})

	path := strings.TrimSpace(cfg.CatalogPath)
	if path == "" {
		return s, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			log.Warn("catalog file missing, using env fallback only", zap.String("file", path))
			return s, nil
		}
		return nil, err
	}

	plans, err := unmarshalPlans(v)
	if err != nil {
		return nil, err
	}
	s.current.Store(plans)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalPlans(v)
		if err != nil {
			log.Warn("catalog reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		s.current.Store(updated)
		log.Info("catalog reloaded", zap.String("file", e.Name), zap.Int("plans", len(updated)))
	})

	return s, nil
}

// Resolve returns the plan for the given identifier.
func (s *Service) Resolve(identifier string) (domain.Plan, error) {
	key := normalize(identifier)
	if key == "" {
		return domain.Plan{}, domain.ErrEmptyPlan
	}

	plans := s.current.Load().(map[string]domain.Plan)
	if plan, ok := plans[key]; ok {
		return plan, nil
	}

	// The original sample servers map plan identifiers straight to environment
	// variables (BASIC=price_...). Keep that as a fallback so the service runs
	// without a catalog file.
	if priceRef := strings.TrimSpace(os.Getenv(key)); priceRef != "" {
		return domain.Plan{Identifier: key, PriceRef: priceRef}, nil
	}

	return domain.Plan{}, domain.ErrUnknownPlan
}

// List returns all configured plans sorted by identifier.
func (s *Service) List() []domain.Plan {
	plans := s.current.Load().(map[string]domain.Plan)
	out := make([]domain.Plan, 0, len(plans))
	for _, plan := range plans {
		out = append(out, plan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

func unmarshalPlans(v *viper.Viper) (map[string]domain.Plan, error) {
	var raw []domain.Plan
	if err := v.UnmarshalKey("plans", &raw); err != nil {
		return nil, err
	}

	plans := make(map[string]domain.Plan, len(raw))
	for _, plan := range raw {
		key := normalize(plan.Identifier)
		if key == "" || strings.TrimSpace(plan.PriceRef) == "" {
			continue
		}
		plan.Identifier = key
		plan.PriceRef = strings.TrimSpace(plan.PriceRef)
		plans[key] = plan
	}
	return plans, nil
}

func normalize(identifier string) string {
	return strings.ToUpper(strings.TrimSpace(identifier))
}
