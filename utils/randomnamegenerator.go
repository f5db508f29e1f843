package utils

import (
	"math/rand"
	"strconv"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out unique readable names. Safe for concurrent
// use.
type RandomNameGenerator struct {
	mu    sync.Mutex
	used  map[string]struct{}
	inits sync.Once
}

// maxAttempts before falling back to a numbered name
const maxAttempts = 64

func (rng *RandomNameGenerator) RandomName() string {
	rng.inits.Do(func() {
		rng.used = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	})
	rng.mu.Lock()
	defer rng.mu.Unlock()

	for i := 0; i < maxAttempts; i++ {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := rng.used[name]; !exists {
			rng.used[name] = struct{}{}
			return name
		}
	}
	name := randomdata.SillyName() + strconv.Itoa(len(rng.used))
	rng.used[name] = struct{}{}
	return name
}
