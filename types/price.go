package types

import "time"

// PricePoint is one weekly observation from the EU agri-food price API.
type PricePoint struct {
	Year  int
	Week  int
	Date  time.Time // derived from Year+Week
	Price float64   // EUR per tonne
}

// PriceSeries is an ordered-by-date sequence of weekly observations.
// It is derived fresh on every fetch and never persisted.
type PriceSeries []PricePoint
