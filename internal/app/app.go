// Package app wires configuration, the gene tables, the frequency backend and the
// feedback store into a ready classifier for the binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/config"
	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/feedback"
	"github.com/vhl-acmg-classifier/internal/genemodel"
	"github.com/vhl-acmg-classifier/internal/service"
	"github.com/vhl-acmg-classifier/pkg/external"
)

// ConfigPathEnv names an explicit config file for binaries without a --config flag.
const ConfigPathEnv = config.EnvPrefix + "_CONFIG"

// App holds the long-lived components shared by the HTTP, MCP and CLI front ends.
type App struct {
	Config     *domain.Config
	Logger     *logrus.Logger
	Tables     *genemodel.Tables
	Classifier *service.ClassifierService
	Feedback   feedback.Store

	backend *external.Backend
}

// Load reads and validates configuration from path (or the default search
// locations when empty) and builds the application from it.
func Load(ctx context.Context, path string) (*App, error) {
	manager, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return New(ctx, manager.GetConfig())
}

// LoadFromEnv is Load with the path taken from ConfigPathEnv.
func LoadFromEnv(ctx context.Context) (*App, error) {
	return Load(ctx, os.Getenv(ConfigPathEnv))
}

// New builds the application from an already validated configuration.
func New(ctx context.Context, cfg *domain.Config) (*App, error) {
	logger := config.NewLogger(cfg.Logging)

	tables, err := genemodel.Load(cfg.Tables.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load gene tables: %w", err)
	}

	backend, err := external.NewBackend(ctx, cfg.Frequency, cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create frequency backend: %w", err)
	}

	store, err := feedback.NewStore(cfg.Feedback)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to open feedback store: %w", err)
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Tables:     tables,
		Classifier: service.NewClassifierService(logger, tables, backend.Adapter, cfg.Frequency.Timeout),
		Feedback:   store,
		backend:    backend,
	}

	logger.WithFields(logrus.Fields{
		"tables_version":   tables.Version,
		"frequency_source": a.Classifier.FrequencySource(),
		"feedback_driver":  cfg.Feedback.Driver,
	}).Info("Classifier initialized")

	return a, nil
}

// Close releases the feedback store and the frequency backend.
func (a *App) Close() error {
	var errs []error
	if a.Feedback != nil {
		if err := a.Feedback.Close(); err != nil {
			errs = append(errs, fmt.Errorf("feedback store: %w", err))
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("frequency backend: %w", err))
		}
	}
	return errors.Join(errs...)
}
