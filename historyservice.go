package main

import (
	"context"
	"errors"
	"fmt"

	"lorikeet/internal/colorspace"
	"lorikeet/internal/deltae"
	"lorikeet/internal/history"
)

type HistoryService struct {
	repo *history.Repository
}

func NewHistoryService(repo *history.Repository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) List(limit int, offset int) ([]history.Scheme, error) {
	return s.repo.List(context.Background(), limit, offset)
}

func (s *HistoryService) Get(id int64) (history.Scheme, error) {
	saved, err := s.repo.GetByID(context.Background(), id)
	if errors.Is(err, history.ErrSchemeNotFound) {
		return history.Scheme{}, fmt.Errorf("scheme %d does not exist", id)
	}
	return saved, err
}

func (s *HistoryService) Delete(id int64) error {
	err := s.repo.Delete(context.Background(), id)
	if errors.Is(err, history.ErrSchemeNotFound) {
		return fmt.Errorf("scheme %d does not exist", id)
	}
	return err
}

// Separation rebuilds a saved scheme and returns, per color, the smallest
// squared distance from any earlier color under the scheme's own metric.
// The seed has no earlier color and reports 0.
func (s *HistoryService) Separation(id int64) ([]float64, error) {
	saved, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	colors, err := saved.Palette()
	if err != nil {
		return nil, fmt.Errorf("rebuild scheme %d: %w", id, err)
	}
	algorithm, err := saved.AlgorithmSpec()
	if err != nil {
		return nil, fmt.Errorf("rebuild algorithm of scheme %d: %w", id, err)
	}

	labs := make([]colorspace.Lab, len(colors))
	separation := make([]float64, len(colors))
	for index, c := range colors {
		labs[index] = colorspace.LabOf(c)
		for earlier := range index {
			distance := float64(deltae.Squared(algorithm, labs[earlier], labs[index]))
			if earlier == 0 || distance < separation[index] {
				separation[index] = distance
			}
		}
	}
	return separation, nil
}
