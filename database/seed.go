package database

import (
	"fmt"
	"os"
	"time"

	"latidos/models"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Reports []models.Report `yaml:"reports"`
}

// DefaultSeed returns the example sightings the store starts with.
func DefaultSeed() []models.Report {
	return []models.Report{
		{
			ID:           "post_1",
			Kind:         models.KindLost,
			ReporterID:   "user_a",
			ReporterName: "Ana",
			ImageRef:     "https://picsum.photos/id/1025/400/300",
			Breed:        "Pug",
			Color:        "Beige con máscara negra",
			Size:         models.SizeSmall,
			Description:  "Se llama Pipo, es muy amigable pero se asusta con los ruidos fuertes. Llevaba un collar azul.",
			Location:     models.GeoPoint{Lat: -20.220, Lng: -70.145},
			CreatedAt:    time.Date(2024, 7, 19, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:           "post_2",
			Kind:         models.KindFound,
			ReporterID:   "user_b",
			ReporterName: "Carlos",
			ImageRef:     "https://picsum.photos/id/219/400/300",
			Breed:        "Mestizo",
			Color:        "Naranjo atigrado",
			Size:         models.SizeMedium,
			Description:  "Gato muy dócil encontrado cerca del supermercado. Parece bien cuidado, debe tener familia.",
			Location:     models.GeoPoint{Lat: -20.235, Lng: -70.138},
			CreatedAt:    time.Date(2024, 7, 20, 15, 30, 0, 0, time.UTC),
		},
		{
			ID:           "post_3",
			Kind:         models.KindLost,
			ReporterID:   "user_c",
			ReporterName: "Maria",
			ImageRef:     "https://picsum.photos/id/1062/400/300",
			Breed:        "Labrador Retriever",
			Color:        "Dorado",
			Size:         models.SizeLarge,
			Description:  "Responde al nombre de Max. Se perdió en la playa Cavancha. Es muy juguetón y tiene una pequeña cicatriz en la oreja derecha.",
			Location:     models.GeoPoint{Lat: -20.246, Lng: -70.149},
			CreatedAt:    time.Date(2024, 7, 20, 8, 0, 0, 0, time.UTC),
		},
		{
			ID:           "post_4",
			Kind:         models.KindFound,
			ReporterID:   "user_d",
			ReporterName: "Javier",
			ImageRef:     "https://picsum.photos/id/1025/400/300",
			Breed:        "Pug",
			Color:        "Crema",
			Size:         models.SizeSmall,
			Description:  "Encontré este perrito asustado en el parque. Tenía un collar azul pero sin placa. Muy amistoso.",
			Location:     models.GeoPoint{Lat: -20.222, Lng: -70.146},
			CreatedAt:    time.Date(2024, 7, 19, 18, 0, 0, 0, time.UTC),
		},
	}
}

// LoadSeed reads seed reports from a YAML file, or returns DefaultSeed when path is empty.
func LoadSeed(path string) ([]models.Report, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML document of the form `reports: [...]`. Every report must
// carry the fields a created report is required to have.
func ParseSeed(data []byte) ([]models.Report, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, r := range f.Reports {
		if r.ID == "" {
			return nil, fmt.Errorf("seed report %d has no id", i)
		}
		if r.Kind != models.KindLost && r.Kind != models.KindFound {
			return nil, fmt.Errorf("seed report %s has unknown type %q", r.ID, r.Kind)
		}
		n := models.NewReport{Kind: r.Kind, Breed: r.Breed, Color: r.Color, Size: r.Size, Description: r.Description, ImageRef: r.ImageRef}
		if err := n.Validate(); err != nil {
			return nil, fmt.Errorf("seed report %s is incomplete: %w", r.ID, err)
		}
	}
	return f.Reports, nil
}
