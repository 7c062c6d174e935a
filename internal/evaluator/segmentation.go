package evaluator

// segmentationBucket computes the deterministic bucket used by the
// "segmentation" condition: a stable, non-cryptographic hash of
// str(value) || salt, taken mod 100. The algorithm must match §4.5
// exactly (and its JS-derived int32 wraparound) bit for bit, since
// clients evaluating the same override independently must agree on
// which bucket a context value falls into.
func segmentationBucket(value, salt string) int {
	s := value + salt
	var sum int32
	for _, c := range s {
		sum = (sum << 5) - sum + int32(c)
	}
	// Widen before taking the absolute value: -math.MinInt32 does not
	// fit in an int32, while JS's Math.abs yields 2^31 for it.
	abs := int64(sum)
	if abs < 0 {
		abs = -abs
	}
	return int(abs % 100)
}
