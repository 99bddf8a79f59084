package sproto

import "github.com/cespare/xxhash/v2"

// Fingerprint returns a stable 64-bit hash of the bundle this Catalogue was
// parsed from (C8). Two catalogues loaded from byte-identical bundles
// always report the same fingerprint, so two peers can compare fingerprints
// instead of whole bundles. Host does not compare fingerprints itself.
func (c *Catalogue) Fingerprint() uint64 {
	return xxhash.Sum64(c.raw)
}
