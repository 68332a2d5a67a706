package fl

import (
	"golang.org/x/exp/rand"
)

// SampleClients picks m of n client indices uniformly without replacement.
// The powd and random schemes currently resolve to the same uniform subset;
// the scheme name only drives the participation accounting.
func SampleClients(rng *rand.Rand, n, m int) []int {
	if m > n {
		m = n
	}
	return rng.Perm(n)[:m]
}
