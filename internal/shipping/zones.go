// Package shipping resolves the WooCommerce shipping zone of a destination
// and lists the rates configured on it.
package shipping

import (
	"sort"
	"strconv"
	"strings"

	"storefront-proxy/internal/woocommerce"
)

// Destination is the address used for zone matching.
type Destination struct {
	Country  string `json:"country"`
	State    string `json:"state,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

func (d Destination) normalized() Destination {
	d.Country = strings.ToUpper(strings.TrimSpace(d.Country))
	d.State = strings.ToUpper(strings.TrimSpace(d.State))
	d.Postcode = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(d.Postcode), " ", ""))
	// Accept "KW:KW-AH" or "KW-AH" as state.
	if i := strings.IndexByte(d.State, ':'); i >= 0 {
		d.State = d.State[i+1:]
	}
	return d
}

// Zone is a shipping zone with its location rules.
type Zone struct {
	woocommerce.ShippingZone
	Locations []woocommerce.ZoneLocation
}

// Match returns the first zone, in zone order, whose locations match d.
// Zone 0 ("Locations not covered by your other zones") is only returned
// when no other zone matches. ok is false when nothing matches at all.
func Match(zones []Zone, d Destination) (zone Zone, ok bool) {
	d = d.normalized()

	sorted := make([]Zone, 0, len(zones))
	var catchAll *Zone
	for i := range zones {
		if zones[i].ID == 0 {
			catchAll = &zones[i]
			continue
		}
		sorted = append(sorted, zones[i])
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	for _, z := range sorted {
		if zoneMatches(z.Locations, d) {
			return z, true
		}
	}
	if catchAll != nil {
		return *catchAll, true
	}
	return Zone{}, false
}

// zoneMatches follows WooCommerce: region rules (country, state) must match
// when present, and postcode rules further restrict the region when present.
// A zone with no usable rules never matches. Continent rules are not
// evaluated.
func zoneMatches(locs []woocommerce.ZoneLocation, d Destination) bool {
	var regions, postcodes []woocommerce.ZoneLocation
	for _, l := range locs {
		switch l.Type {
		case "country", "state":
			regions = append(regions, l)
		case "postcode":
			postcodes = append(postcodes, l)
		}
	}
	if len(regions) == 0 && len(postcodes) == 0 {
		return false
	}

	if len(regions) > 0 {
		matched := false
		for _, l := range regions {
			if regionMatches(l, d) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(postcodes) > 0 {
		for _, l := range postcodes {
			if postcodeMatches(l.Code, d.Postcode) {
				return true
			}
		}
		return false
	}
	return true
}

func regionMatches(l woocommerce.ZoneLocation, d Destination) bool {
	code := strings.ToUpper(strings.TrimSpace(l.Code))
	switch l.Type {
	case "country":
		return code == d.Country
	case "state":
		// "KW:KW-AH"
		country, state, found := strings.Cut(code, ":")
		if !found {
			return false
		}
		return country == d.Country && state == d.State
	}
	return false
}

// postcodeMatches supports exact codes, a trailing "*" wildcard and "lo...hi" numeric ranges.
func postcodeMatches(pattern, postcode string) bool {
	pattern = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(pattern), " ", ""))
	if pattern == "" || postcode == "" {
		return false
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(postcode, prefix)
	}
	if lo, hi, ok := strings.Cut(pattern, "..."); ok {
		n, err := strconv.Atoi(postcode)
		if err != nil {
			return false
		}
		from, errLo := strconv.Atoi(lo)
		to, errHi := strconv.Atoi(hi)
		if errLo != nil || errHi != nil {
			return false
		}
		return n >= from && n <= to
	}
	return pattern == postcode
}
