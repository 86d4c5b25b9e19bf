package temps

import (
	"errors"
	"sort"
	"sync"
)

// Temps reads every configured sensor once per tick. Reads run
// concurrently since a single slow hddtemp or ipmi call must not
// stall the other sensors, but the concurrency is bounded so a box
// with dozens of disks doesn't fork them all at once.
type Temps struct {
	temps       map[string]*Temp
	concurrency int
}

func NewTemps(temps map[string]*Temp, concurrency int) *Temps {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Temps{
		temps:       temps,
		concurrency: concurrency,
	}
}

func (t *Temps) Temp(id string) (*Temp, bool) {
	temp, ok := t.temps[id]
	return temp, ok
}

func (t *Temps) Acquire() error {
	var acquired []*Temp
	for _, temp := range t.ordered() {
		if err := temp.Acquire(); err != nil {
			for i := len(acquired) - 1; i >= 0; i-- {
				if releaseErr := acquired[i].Release(); releaseErr != nil {
					err = errors.Join(err, releaseErr)
				}
			}
			return err
		}
		acquired = append(acquired, temp)
	}
	return nil
}

func (t *Temps) Release() error {
	var err error
	ordered := t.ordered()
	for i := len(ordered) - 1; i >= 0; i-- {
		err = errors.Join(err, ordered[i].Release())
	}
	return err
}

// GetTemps reads all sensors and returns their observed statuses keyed
// by sensor id. Every configured sensor is present in the result; a
// failed read yields a status with nil readings.
func (t *Temps) GetTemps() map[string]*ObservedTempStatus {
	ordered := t.ordered()

	var mu sync.Mutex
	result := make(map[string]*ObservedTempStatus, len(ordered))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, t.concurrency)
	for _, temp := range ordered {
		wg.Add(1)
		go func(temp *Temp) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			observed := temp.Get()
			mu.Lock()
			result[temp.GetId()] = observed
			mu.Unlock()
		}(temp)
	}
	wg.Wait()

	return result
}

func (t *Temps) ordered() []*Temp {
	ids := make([]string, 0, len(t.temps))
	for id := range t.temps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	result := make([]*Temp, 0, len(ids))
	for _, id := range ids {
		result = append(result, t.temps[id])
	}
	return result
}
