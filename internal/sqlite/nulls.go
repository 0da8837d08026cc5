package sqlite

import (
	"database/sql"
	"strings"
	"time"

	"github.com/rpggio/patrol/internal/spatial"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func pointArgs(p *spatial.Point) (any, any) {
	if p == nil {
		return nil, nil
	}
	return p.Lat, p.Lng
}

func pointFrom(lat, lng sql.NullFloat64) *spatial.Point {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &spatial.Point{Lat: lat.Float64, Lng: lng.Float64}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
