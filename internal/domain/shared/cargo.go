package shared

import "fmt"

// CargoItem is a single good in a ship's hold.
type CargoItem struct {
	Symbol string
	Units  int
}

// Cargo is an immutable snapshot of a ship's hold.
type Cargo struct {
	capacity  int
	units     int
	inventory []CargoItem
}

// NewCargo validates that units fit the capacity and that the inventory sums
// to the declared units.
func NewCargo(capacity, units int, inventory []CargoItem) (*Cargo, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("cargo capacity cannot be negative: %d", capacity)
	}
	if units < 0 {
		return nil, fmt.Errorf("cargo units cannot be negative: %d", units)
	}
	if units > capacity {
		return nil, fmt.Errorf("cargo units %d exceed capacity %d", units, capacity)
	}

	sum := 0
	for _, item := range inventory {
		if item.Units < 0 {
			return nil, fmt.Errorf("cargo item %s has negative units", item.Symbol)
		}
		sum += item.Units
	}
	if sum != units {
		return nil, fmt.Errorf("inventory sums to %d units but cargo declares %d", sum, units)
	}

	inv := make([]CargoItem, len(inventory))
	copy(inv, inventory)

	return &Cargo{
		capacity:  capacity,
		units:     units,
		inventory: inv,
	}, nil
}

// EmptyCargo returns a cargo hold of the given capacity with nothing in it.
func EmptyCargo(capacity int) *Cargo {
	cargo, _ := NewCargo(capacity, 0, nil)
	return cargo
}

func (c *Cargo) Capacity() int {
	return c.capacity
}

func (c *Cargo) Units() int {
	return c.units
}

// Inventory returns a copy of the items in the hold.
func (c *Cargo) Inventory() []CargoItem {
	inv := make([]CargoItem, len(c.inventory))
	copy(inv, c.inventory)
	return inv
}

func (c *Cargo) HasItem(symbol string) bool {
	for _, item := range c.inventory {
		if item.Symbol == symbol && item.Units > 0 {
			return true
		}
	}
	return false
}

func (c *Cargo) GetItemUnits(symbol string) int {
	for _, item := range c.inventory {
		if item.Symbol == symbol {
			return item.Units
		}
	}
	return 0
}

// HasItemsOtherThan reports whether the hold carries anything besides the
// given symbols.
func (c *Cargo) HasItemsOtherThan(symbols ...string) bool {
	allowed := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		allowed[s] = true
	}
	for _, item := range c.inventory {
		if item.Units > 0 && !allowed[item.Symbol] {
			return true
		}
	}
	return false
}

func (c *Cargo) AvailableCapacity() int {
	return c.capacity - c.units
}

func (c *Cargo) IsEmpty() bool {
	return c.units == 0
}

func (c *Cargo) IsFull() bool {
	return c.units >= c.capacity
}
