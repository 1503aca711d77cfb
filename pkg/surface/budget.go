package surface

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// ErrOverBudget means the requested pools would not fit the memory budget.
var ErrOverBudget = errors.New("surface: pools exceed memory budget")

// Budget describes the memory required by a set of pools.
type Budget struct {
	RequiredBytes  uint64
	AvailableBytes uint64
	Fraction       float64
}

// availableMemory is replaced in tests.
var availableMemory = func() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// CheckBudget verifies that the surfaces of pools use at most fraction of
// the currently available system memory.
func CheckBudget(fraction float64, pools ...*Pool) (Budget, error) {
	var required uint64
	for _, p := range pools {
		if p == nil {
			continue
		}
		required += uint64(p.FrameBytes()) * uint64(p.Len())
	}

	b := Budget{RequiredBytes: required, Fraction: fraction}
	available, err := availableMemory()
	if err != nil {
		return b, fmt.Errorf("query available memory: %w", err)
	}
	b.AvailableBytes = available

	if fraction > 0 && float64(required) > float64(available)*fraction {
		return b, fmt.Errorf("%w: need %d bytes, %.0f%% of available is %d bytes",
			ErrOverBudget, required, fraction*100, uint64(float64(available)*fraction))
	}
	return b, nil
}
