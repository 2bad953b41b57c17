package dataset_go

import (
	"golang.org/x/exp/rand"
)

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func mixSeed(seed int64, keys ...int) uint64 {
	s := splitmix64(uint64(seed))
	for _, k := range keys {
		s = splitmix64(s ^ uint64(k))
	}
	return s
}

// streamSource Returns random source which depends only on (seed, epoch, index).
// Every batch gets its own stream, hence batches may be built concurrently and in any order.
func streamSource(seed int64, epoch, index int) rand.Source {
	return rand.NewSource(mixSeed(seed, epoch, index))
}

// elementSource Returns random source of element-th sample of the batch. Used by random ops
func elementSource(seed int64, epoch, index, element int) rand.Source {
	return rand.NewSource(mixSeed(seed, epoch, index, element))
}

// drawIndices Draws k indices from [0, n).
// Indices are distinct when k <= n; otherwise they are drawn with replacement.
func drawIndices(rng *rand.Rand, n, k int) []int {
	out := make([]int, k)
	if k > n {
		for i := range out {
			out[i] = rng.Intn(n)
		}
		return out
	}
	// partial Fisher-Yates over virtual [0, n) array, only touched cells are stored
	swapped := make(map[int]int, k)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		vi, ok := swapped[i]
		if !ok {
			vi = i
		}
		vj, ok := swapped[j]
		if !ok {
			vj = j
		}
		out[i] = vj
		swapped[j] = vi
	}
	return out
}
