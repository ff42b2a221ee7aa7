// File: /services/location_service.go
package services

import (
	"context"

	"eventhub-api/models"
	"eventhub-api/utils"
)

type LocationService struct {
	geocoder Geocoder
}

func NewLocationService(geocoder Geocoder) *LocationService {
	return &LocationService{
		geocoder: geocoder,
	}
}

// Resolve turns client input into a Location ready to be stored. An address
// is geocoded forward; a bare point is reverse geocoded for its address;
// empty input yields an empty location.
func (s *LocationService) Resolve(ctx context.Context, in models.LocationInput) (*models.Location, error) {
	switch {
	case in.Address != "":
		res, err := s.geocoder.Geocode(ctx, in.Address)
		if err != nil {
			return nil, err
		}
		return newLocation(res.Address, res.Longitude, res.Latitude), nil

	case in.Point != "":
		lon, lat, err := utils.ParsePoint(in.Point)
		if err != nil {
			fields := utils.FieldErrors{}
			fields.Add("location", err.Error())
			return nil, fields.Err()
		}
		res, err := s.geocoder.Reverse(ctx, lon, lat)
		if err != nil {
			return nil, err
		}
		// The client's point is kept; only the address comes from the provider.
		return newLocation(res.Address, lon, lat), nil

	default:
		return &models.Location{}, nil
	}
}

func newLocation(address string, lon, lat float64) *models.Location {
	return &models.Location{
		Address:   address,
		Point:     utils.FormatPoint(lon, lat),
		Longitude: &lon,
		Latitude:  &lat,
	}
}
