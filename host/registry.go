package host

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MemoryRegistry is an in-process SensorRegistry.
type MemoryRegistry struct {
	mu        sync.RWMutex
	devices   map[int]*Device
	observers []Observer
	now       func() time.Time
}

func NewMemoryRegistry(observers ...Observer) *MemoryRegistry {
	return &MemoryRegistry{
		devices:   make(map[int]*Device),
		observers: observers,
		now:       time.Now,
	}
}

// AddObserver must be called before the registry is shared.
func (r *MemoryRegistry) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

func (r *MemoryRegistry) Device(unit int) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[unit]
	if !ok {
		return Device{}, false
	}
	return copyDevice(d), true
}

// Units returns all unit numbers in ascending order.
func (r *MemoryRegistry) Units() []int {
	r.mu.RLock()
	units := maps.Keys(r.devices)
	r.mu.RUnlock()
	slices.Sort(units)
	return units
}

func (r *MemoryRegistry) Create(d Device) error {
	r.mu.Lock()
	if _, ok := r.devices[d.Unit]; ok {
		r.mu.Unlock()
		return fmt.Errorf("create unit %d: %w", d.Unit, ErrDeviceExists)
	}
	created := copyDevice(&d)
	r.devices[d.Unit] = &created
	r.mu.Unlock()

	for _, o := range r.observers {
		o.DeviceCreated(copyDevice(&created))
	}
	return nil
}

func (r *MemoryRegistry) Update(unit int, nValue int, sValue string, timedOut bool) error {
	r.mu.Lock()
	d, ok := r.devices[unit]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("update unit %d: %w", unit, ErrDeviceNotFound)
	}
	d.NValue = nValue
	d.SValue = sValue
	d.TimedOut = timedOut
	d.LastUpdate = r.now()
	updated := copyDevice(d)
	r.mu.Unlock()

	for _, o := range r.observers {
		o.DeviceUpdated(updated)
	}
	return nil
}

func (r *MemoryRegistry) Delete(unit int) error {
	r.mu.Lock()
	d, ok := r.devices[unit]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("delete unit %d: %w", unit, ErrDeviceNotFound)
	}
	delete(r.devices, unit)
	r.mu.Unlock()

	for _, o := range r.observers {
		o.DeviceDeleted(*d)
	}
	return nil
}

func copyDevice(d *Device) Device {
	c := *d
	if d.Options != nil {
		c.Options = maps.Clone(d.Options)
	}
	return c
}
