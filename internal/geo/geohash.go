package geo

import "strings"

// ZoneKeyPrecision is the geohash precision used for coarse zone keys stored
// in vector-index metadata. Six characters is roughly ±0.61 km, enough to
// group candidates by neighborhood without exposing exact court coordinates.
const ZoneKeyPrecision = 6

// base32 is the geohash base32 alphabet (excludes 'a', 'i', 'l', 'o').
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode encodes latitude and longitude into a geohash string with the given
// precision. Used to derive the coarse zone key attached to each indexed
// player vector.
func Encode(lat, lon float64, precision int) string {
	if precision < 1 {
		precision = ZoneKeyPrecision
	}

	latRange := [2]float64{-90.0, 90.0}
	lonRange := [2]float64{-180.0, 180.0}

	var hash strings.Builder
	hash.Grow(precision)

	bits := 0
	var ch uint

	even := true
	for hash.Len() < precision {
		if even {
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon > mid {
				ch |= (1 << (4 - bits))
				lonRange[0] = mid
			} else {
				lonRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= (1 << (4 - bits))
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}

		even = !even
		bits++

		if bits == 5 {
			hash.WriteByte(base32[ch])
			bits = 0
			ch = 0
		}
	}

	return hash.String()
}

// ZoneKey returns the coarse geohash key for a coordinate at the default
// precision.
func ZoneKey(lat, lon float64) string {
	return Encode(lat, lon, ZoneKeyPrecision)
}
