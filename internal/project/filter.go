package project

import (
	"fmt"
	"math"
	"strings"
)

// FilterType selects a subset of projects for the map.
type FilterType string

const (
	FilterAll        FilterType = "all"
	FilterNearMe     FilterType = "near-me"
	FilterNewBuild   FilterType = "new-build"
	FilterRenovation FilterType = "renovation"
)

// Default map centre (Toronto City Hall) and near-me radius.
const (
	DefaultLatitude  = 43.6532
	DefaultLongitude = -79.3832
	DefaultRadiusKM  = 5.0
)

// MinQueryLength is the shortest trimmed query Search will match.
const MinQueryLength = 2

// DefaultSearchLimit caps the number of search results.
const DefaultSearchLimit = 5

// FilterOpts holds the near-me origin and radius. Zero values fall back to
// the defaults.
type FilterOpts struct {
	Latitude  float64
	Longitude float64
	RadiusKM  float64
}

// ParseFilter validates a filter name. An empty name means FilterAll.
func ParseFilter(s string) (FilterType, error) {
	switch f := FilterType(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterNearMe, FilterNewBuild, FilterRenovation:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown filter %q", ErrInvalid, s)
}

// Filter returns the projects matching f, preserving order.
func Filter(projects []ConstructionProject, f FilterType, opts FilterOpts) []ConstructionProject {
	if opts.Latitude == 0 && opts.Longitude == 0 {
		opts.Latitude, opts.Longitude = DefaultLatitude, DefaultLongitude
	}
	if opts.RadiusKM <= 0 {
		opts.RadiusKM = DefaultRadiusKM
	}

	out := make([]ConstructionProject, 0, len(projects))
	for _, p := range projects {
		keep := true
		switch f {
		case FilterNewBuild:
			keep = p.ProjectType == TypeNewBuild
		case FilterRenovation:
			keep = p.ProjectType == TypeRenovation
		case FilterNearMe:
			keep = DistanceKM(opts.Latitude, opts.Longitude, p.Latitude, p.Longitude) <= opts.RadiusKM
		}
		if keep {
			out = append(out, p)
		}
	}
	return out
}

// Search returns up to limit projects whose name, address, type or
// description contains query, case-insensitively. Queries shorter than
// MinQueryLength after trimming match nothing. limit <= 0 uses
// DefaultSearchLimit.
func Search(projects []ConstructionProject, query string, limit int) []ConstructionProject {
	term := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(term)) < MinQueryLength {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var out []ConstructionProject
	for _, p := range projects {
		if matches(p, term) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func matches(p ConstructionProject, term string) bool {
	for _, field := range []string{p.Name, p.Address, p.ProjectType, p.Description} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

const earthRadiusKM = 6371.0

// DistanceKM is the haversine great-circle distance between two points.
func DistanceKM(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
