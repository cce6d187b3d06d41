package dedup

import (
	"hash/fnv"
	"math/bits"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText prepares text for fingerprinting: NFKC normalization,
// lower-casing, and whitespace collapsed to single spaces. Typographic
// variants of the same text fingerprint identically.
func NormalizeText(text string) string {
	lower := strings.ToLower(norm.NFKC.String(text))
	return strings.Join(strings.Fields(lower), " ")
}

// SimHash64 computes a 64-bit locality-sensitive fingerprint of the
// normalized text. Each whitespace token votes on every bit position with
// the bits of its FNV-1a hash; the sign of each position's tally becomes
// the output bit. Hamming distance between fingerprints approximates
// textual similarity.
func SimHash64(text string) uint64 {
	var votes [64]int
	for _, token := range strings.Fields(NormalizeText(text)) {
		h := fnv.New64a()
		h.Write([]byte(token))
		th := h.Sum64()
		for i := 0; i < 64; i++ {
			if th&(1<<uint(i)) != 0 {
				votes[i]++
			} else {
				votes[i]--
			}
		}
	}
	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if votes[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// IsSimilar reports whether two fingerprints are within threshold bits.
func IsSimilar(a, b uint64, threshold int) bool {
	return HammingDistance(a, b) <= threshold
}

// DeduplicateTexts keeps the first of every group of near-duplicate texts,
// preserving input order. Used for in-memory batch dedup outside a pipeline.
func DeduplicateTexts(texts []string, threshold int) []string {
	var unique []string
	var hashes []uint64
	for _, t := range texts {
		h := SimHash64(t)
		dup := false
		for _, seen := range hashes {
			if IsSimilar(seen, h, threshold) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, t)
			hashes = append(hashes, h)
		}
	}
	return unique
}
