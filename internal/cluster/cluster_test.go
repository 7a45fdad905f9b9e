package cluster

import (
	"reflect"
	"testing"
)

func TestHamming(t *testing.T) {
	cases := []struct {
		a, b uint64
		want int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0b1111, 0, 4},
		{0xFFFFFFFFFFFFFFFF, 0, 64},
		{0b1010, 0b0101, 4},
	}
	for _, c := range cases {
		if got := Hamming(c.a, c.b); got != c.want {
			t.Errorf("Hamming(%#x, %#x) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCluster_Empty(t *testing.T) {
	clusters, assign := Cluster(nil, DefaultThreshold)
	if len(clusters) != 0 {
		t.Errorf("clusters = %v, want none", clusters)
	}
	if len(assign) != 0 {
		t.Errorf("assignment = %v, want empty", assign)
	}
}

func TestCluster_ThresholdBoundary(t *testing.T) {
	// 0b1111 differs from 0 in exactly 4 bits: clusters together at
	// threshold 4. 0b11111 differs in 5: does not.
	clusters, _ := Cluster([]uint64{0, 0b1111}, 4)
	if len(clusters) != 1 {
		t.Errorf("at threshold: %d clusters, want 1", len(clusters))
	}

	clusters, _ = Cluster([]uint64{0, 0b11111}, 4)
	if len(clusters) != 2 {
		t.Errorf("past threshold: %d clusters, want 2", len(clusters))
	}
}

func TestCluster_TotalCoverage(t *testing.T) {
	hashes := []uint64{0, 1, 0xFF00, 0xFF01, 0xF0F0F0F0, 42}
	clusters, assign := Cluster(hashes, 4)

	if len(assign) != len(hashes) {
		t.Fatalf("assignment covers %d hashes, want %d", len(assign), len(hashes))
	}
	total := 0
	for ci, members := range clusters {
		total += len(members)
		for _, h := range members {
			if assign[h] != ci {
				t.Errorf("hash %#x in cluster %d but assigned %d", h, ci, assign[h])
			}
		}
	}
	if total != len(hashes) {
		t.Errorf("clusters hold %d hashes, want %d (disjoint partition)", total, len(hashes))
	}
}

func TestCluster_FirstFitNotBestFit(t *testing.T) {
	// h is 4 bits from the first pivot and only 1 bit from the second,
	// but first-fit places it with the first cluster anyway.
	pivotA := uint64(0)
	pivotB := uint64(0b11111) // 5 bits from pivotA, so it forms its own cluster
	h := uint64(0b11110)      // 4 bits from pivotA, 1 bit from pivotB

	clusters, assign := Cluster([]uint64{pivotA, pivotB, h}, 4)
	if len(clusters) != 2 {
		t.Fatalf("%d clusters, want 2", len(clusters))
	}
	if assign[h] != 0 {
		t.Errorf("hash assigned to cluster %d, want 0 (first fit)", assign[h])
	}
}

func TestCluster_FirstFitProperty(t *testing.T) {
	hashes := []uint64{0x00, 0x03, 0xFF, 0xF0, 0xFFFF00, 0x01}
	clusters, assign := Cluster(hashes, 4)

	// No cluster created before the assigned one may have a pivot within
	// threshold of the member.
	for _, h := range hashes {
		for ci := 0; ci < assign[h]; ci++ {
			if Hamming(h, clusters[ci][0]) <= 4 {
				t.Errorf("hash %#x assigned to %d but pivot of earlier cluster %d is within threshold", h, assign[h], ci)
			}
		}
	}
}

func TestCluster_PivotFixedAtCreation(t *testing.T) {
	// Chain: 0 (pivot), 0b11 (2 bits from pivot), 0b11110011 (6 bits from
	// pivot, only 4 from the second member). Membership is tested against
	// the pivot only, so the third hash must start its own cluster.
	clusters, _ := Cluster([]uint64{0b0000, 0b0011, 0b11110011}, 4)
	if len(clusters) != 2 {
		t.Errorf("%d clusters, want 2 (membership tested against pivot only)", len(clusters))
	}
}

func TestCluster_DeterministicForFixedOrder(t *testing.T) {
	hashes := []uint64{7, 0xABCDEF, 0xABCDE0, 3, 0xFFFF, 0xFFF0}

	c1, a1 := Cluster(hashes, 4)
	c2, a2 := Cluster(hashes, 4)

	if !reflect.DeepEqual(c1, c2) {
		t.Errorf("clusters differ across runs: %v vs %v", c1, c2)
	}
	if !reflect.DeepEqual(a1, a2) {
		t.Errorf("assignments differ across runs: %v vs %v", a1, a2)
	}
}

func TestCluster_DuplicateInputIgnored(t *testing.T) {
	clusters, assign := Cluster([]uint64{5, 5, 5}, 4)
	if len(clusters) != 1 || len(clusters[0]) != 1 {
		t.Errorf("clusters = %v, want one singleton", clusters)
	}
	if assign[5] != 0 {
		t.Errorf("assign[5] = %d, want 0", assign[5])
	}
}
