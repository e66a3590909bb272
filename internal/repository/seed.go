package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"gopkg.in/yaml.v3"
)

type spotSeed struct {
	ID        string    `yaml:"id"`
	OwnerID   string    `yaml:"owner_id"`
	EventID   string    `yaml:"event_id"`
	Price     float64   `yaml:"price"`
	Start     time.Time `yaml:"start"`
	End       time.Time `yaml:"end"`
	Latitude  float64   `yaml:"latitude"`
	Longitude float64   `yaml:"longitude"`
	Images    []string  `yaml:"images"`
}

// LoadSpotSeed reads a YAML list of spots. Every spot starts available.
func LoadSpotSeed(path string) ([]domain.ParkingSpot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var seeds []spotSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	spots := make([]domain.ParkingSpot, 0, len(seeds))
	for i, s := range seeds {
		if s.ID == "" || s.OwnerID == "" {
			return nil, fmt.Errorf("seed entry %d: id and owner_id are required", i)
		}
		spots = append(spots, domain.ParkingSpot{
			ID:           s.ID,
			OwnerID:      s.OwnerID,
			EventID:      s.EventID,
			Price:        s.Price,
			Availability: domain.Availability{Start: s.Start, End: s.End},
			Coordinates:  domain.Coordinates{Latitude: s.Latitude, Longitude: s.Longitude},
			Images:       s.Images,
			Status:       domain.SpotStatusAvailable,
		})
	}
	return spots, nil
}

// SeedSpots inserts spots that do not exist yet.
func SeedSpots(ctx context.Context, repo SpotRepository, spots []domain.ParkingSpot) error {
	for i := range spots {
		if err := repo.Create(ctx, &spots[i]); err != nil {
			return fmt.Errorf("seed spot %s: %w", spots[i].ID, err)
		}
	}
	return nil
}
