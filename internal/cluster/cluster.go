// Package cluster groups perceptual hashes into visual near-duplicate
// clusters by Hamming distance.
package cluster

import "math/bits"

// DefaultThreshold is the maximum Hamming distance (in bits) at which two
// hashes are considered the same visual state.
const DefaultThreshold = 4

// Assignment maps every clustered hash to its cluster index. Built once by
// Cluster and read-only afterward.
type Assignment map[uint64]int

// Hamming returns the number of differing bits between two hashes.
func Hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Cluster assigns hashes to clusters by greedy first-fit: each hash joins
// the first existing cluster (in creation order) whose pivot — the
// cluster's first member — is within threshold bits, or starts a new
// cluster. Pivots are never updated, so a cluster's diameter can exceed the
// threshold; only distance to the original pivot is bounded.
//
// The result is a function of the input order. Callers pass hashes in
// first-seen trace order to keep runs reproducible.
func Cluster(hashes []uint64, threshold int) ([][]uint64, Assignment) {
	var clusters [][]uint64
	assign := make(Assignment, len(hashes))

	for _, h := range hashes {
		if _, ok := assign[h]; ok {
			continue
		}
		placed := false
		for ci, members := range clusters {
			if Hamming(h, members[0]) <= threshold {
				clusters[ci] = append(members, h)
				assign[h] = ci
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []uint64{h})
			assign[h] = len(clusters) - 1
		}
	}

	return clusters, assign
}
