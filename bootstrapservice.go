package main

import (
	"context"

	"lorikeet/internal/config"
	"lorikeet/internal/history"
	"lorikeet/internal/jobs"
	"lorikeet/internal/palette"
)

const defaultBootstrapHistoryLimit = 20

type StartupSnapshot struct {
	Settings      config.Settings  `json:"settings"`
	JobStatus     jobs.Status      `json:"jobStatus"`
	RecentSchemes []history.Scheme `json:"recentSchemes"`
	SeedOptions   palette.Options  `json:"seedOptions"`
}

type BootstrapService struct {
	settings *SettingsService
	schemes  *SchemeService
	history  *HistoryService
}

func NewBootstrapService(settings *SettingsService, schemes *SchemeService, historyService *HistoryService) *BootstrapService {
	return &BootstrapService{settings: settings, schemes: schemes, history: historyService}
}

func (s *BootstrapService) GetInitialState(historyLimit int) (StartupSnapshot, error) {
	if historyLimit <= 0 {
		historyLimit = defaultBootstrapHistoryLimit
	}

	recent, err := s.history.repo.List(context.Background(), historyLimit, 0)
	if err != nil {
		return StartupSnapshot{}, err
	}

	return StartupSnapshot{
		Settings:      s.settings.Get(),
		JobStatus:     s.schemes.Status(),
		RecentSchemes: recent,
		SeedOptions:   palette.DefaultOptions(),
	}, nil
}
