package marketdata

import (
	"fmt"
	"sync"
)

var (
	registry = make(map[Marketplace]Fetcher)
	mu       sync.RWMutex
)

func Register(m Marketplace, f Fetcher) {
	mu.Lock()
	defer mu.Unlock()
	registry[m] = f
}

func Get(m Marketplace) (Fetcher, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[m]
	if !ok {
		return nil, fmt.Errorf("marketplace %q not registered", m)
	}
	return f, nil
}

func List() []Marketplace {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]Marketplace, 0, len(registry))
	for m := range registry {
		names = append(names, m)
	}
	return names
}
