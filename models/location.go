// File: /models/location.go
package models

// Location is created per event and never shared between events.
type Location struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	Address   string   `json:"address" gorm:"size:256"`
	Point     string   `json:"point" gorm:"size:64"` // WKT, POINT(lon lat)
	Longitude *float64 `json:"-"`
	Latitude  *float64 `json:"-"`
}

// LocationInput is the client-supplied location of an event. Either field may
// be omitted; the other is resolved through the geocoder.
type LocationInput struct {
	Address string `json:"address" binding:"omitempty,max=256"`
	Point   string `json:"point" binding:"omitempty,max=64"`
}

func (l LocationInput) IsEmpty() bool {
	return l.Address == "" && l.Point == ""
}
