package query

import (
	"math"
	"strconv"
	"strings"
)

// FollowerRange bounds follower_count inclusively. A nil bound is not applied.
type FollowerRange struct {
	Min *int64
	Max *int64
}

// ParseFollowerRange parses "<min>-<max>" where each bound may carry a k
// (thousand) or m (million) suffix, e.g. "20k-1.5m". Malformed input degrades
// to no bound instead of failing.
func ParseFollowerRange(s string) FollowerRange {
	s = strings.ReplaceAll(strings.ToLower(s), " ", "")
	if s == "" {
		return FollowerRange{}
	}
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return FollowerRange{}
	}
	return FollowerRange{
		Min: parseMagnitude(parts[0]),
		Max: parseMagnitude(parts[1]),
	}
}

func parseMagnitude(s string) *int64 {
	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		multiplier = 1_000
		s = strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		multiplier = 1_000_000
		s = strings.TrimSuffix(s, "m")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := f * multiplier
	if v > math.MaxInt64 || v < math.MinInt64 {
		return nil
	}
	n := int64(v)
	return &n
}

// OrganizationFilter narrows the organization listing. Name and Industry are
// case-insensitive substring matches; empty strings are not applied.
type OrganizationFilter struct {
	Name      string
	Industry  string
	Followers FollowerRange
}
