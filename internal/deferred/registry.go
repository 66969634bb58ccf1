// Package deferred implements the tick-indexed delayed-callback queue every
// gameplay component schedules its state transitions through.
package deferred

import (
	"sort"

	"github.com/elliotchance/orderedmap/v2"
)

// Handle identifies a scheduled callback.
type Handle struct {
	id     uint64
	entity string
	name   string
}

// ID returns the registry-wide identifier of the scheduled task.
func (h Handle) ID() uint64 { return h.id }

// Name returns the task name, empty for anonymous tasks.
func (h Handle) Name() string { return h.name }

// Valid reports whether the handle refers to a scheduled task.
func (h Handle) Valid() bool { return h.id != 0 }

type task struct {
	id          uint64
	entity      string
	name        string
	due         uint64
	fn          func()
	compensated bool
}

// Option adjusts how a task is scheduled.
type Option func(*task)

// Named keys the task by name for its entity. Scheduling the same name again
// replaces the pending task.
func Named(name string) Option {
	return func(t *task) {
		t.name = name
	}
}

// Compensated marks the task as hitstop-aware: freezes scheduled while it is
// pending push its due tick out by the added freeze time.
func Compensated() Option {
	return func(t *task) {
		t.compensated = true
	}
}

// Registry stores pending callbacks keyed by entity. It is owned by a single
// room and is not safe for concurrent use.
type Registry struct {
	now    uint64
	nextID uint64
	tasks  map[uint64]*task
	// per entity, insertion ordered task ids
	byEntity map[string]*orderedmap.OrderedMap[uint64, struct{}]
	// per entity, name -> task id
	named map[string]map[string]uint64
}

// NewRegistry constructs an empty registry positioned at tick zero.
func NewRegistry() *Registry {
	return &Registry{
		tasks:    make(map[uint64]*task),
		byEntity: make(map[string]*orderedmap.OrderedMap[uint64, struct{}]),
		named:    make(map[string]map[string]uint64),
	}
}

// Now reports the tick of the last Advance.
func (r *Registry) Now() uint64 {
	return r.now
}

// Schedule installs fn to run delay ticks after the current tick. A zero delay
// runs on the next Advance.
func (r *Registry) Schedule(entity string, delay uint64, fn func(), opts ...Option) Handle {
	if fn == nil {
		return Handle{}
	}
	r.nextID++
	t := &task{
		id:     r.nextID,
		entity: entity,
		due:    r.now + delay,
		fn:     fn,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.name != "" {
		r.Cancel(entity, t.name)
		names := r.named[entity]
		if names == nil {
			names = make(map[string]uint64)
			r.named[entity] = names
		}
		names[t.name] = t.id
	}
	r.tasks[t.id] = t
	order := r.byEntity[entity]
	if order == nil {
		order = orderedmap.NewOrderedMap[uint64, struct{}]()
		r.byEntity[entity] = order
	}
	order.Set(t.id, struct{}{})
	return Handle{id: t.id, entity: entity, name: t.name}
}

// Cancel removes the named pending task of entity. It reports whether a task
// was removed and is safe to call repeatedly.
func (r *Registry) Cancel(entity, name string) bool {
	names := r.named[entity]
	if names == nil {
		return false
	}
	id, ok := names[name]
	if !ok {
		return false
	}
	r.remove(id)
	return true
}

// CancelHandle removes the task behind h if it is still pending.
func (r *Registry) CancelHandle(h Handle) bool {
	if !h.Valid() {
		return false
	}
	if _, ok := r.tasks[h.id]; !ok {
		return false
	}
	r.remove(h.id)
	return true
}

// CancelAll removes every pending task of entity and returns how many were
// removed.
func (r *Registry) CancelAll(entity string) int {
	order := r.byEntity[entity]
	if order == nil {
		return 0
	}
	ids := order.Keys()
	for _, id := range ids {
		r.remove(id)
	}
	delete(r.byEntity, entity)
	delete(r.named, entity)
	return len(ids)
}

// Pending reports whether the named task of entity is scheduled.
func (r *Registry) Pending(entity, name string) bool {
	_, ok := r.named[entity][name]
	return ok
}

// Due returns the tick the named task will fire on.
func (r *Registry) Due(entity, name string) (uint64, bool) {
	id, ok := r.named[entity][name]
	if !ok {
		return 0, false
	}
	return r.tasks[id].due, true
}

// Len reports the number of pending tasks, optionally restricted to entity.
func (r *Registry) Len(entity string) int {
	if entity == "" {
		return len(r.tasks)
	}
	order := r.byEntity[entity]
	if order == nil {
		return 0
	}
	return order.Len()
}

// Extend delays every pending compensated task by ticks.
func (r *Registry) Extend(ticks uint64) int {
	if ticks == 0 {
		return 0
	}
	extended := 0
	for _, t := range r.tasks {
		if !t.compensated {
			continue
		}
		t.due += ticks
		extended++
	}
	return extended
}

// Advance moves the registry to tick and runs every task due at or before
// it, ordered by due tick and then by scheduling order. Tasks cancelled by an
// earlier callback in the same pass do not run; tasks scheduled during the
// pass wait for the next Advance.
func (r *Registry) Advance(tick uint64) int {
	if tick > r.now {
		r.now = tick
	}
	if len(r.tasks) == 0 {
		return 0
	}
	ready := make([]*task, 0, 4)
	for _, t := range r.tasks {
		if t.due <= r.now {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].due != ready[j].due {
			return ready[i].due < ready[j].due
		}
		return ready[i].id < ready[j].id
	})
	fired := 0
	for _, t := range ready {
		if _, ok := r.tasks[t.id]; !ok {
			continue
		}
		r.remove(t.id)
		t.fn()
		fired++
	}
	return fired
}

// Reset drops every pending task. The clock keeps its position.
func (r *Registry) Reset() {
	r.tasks = make(map[uint64]*task)
	r.byEntity = make(map[string]*orderedmap.OrderedMap[uint64, struct{}])
	r.named = make(map[string]map[string]uint64)
}

func (r *Registry) remove(id uint64) {
	t, ok := r.tasks[id]
	if !ok {
		return
	}
	delete(r.tasks, id)
	if order := r.byEntity[t.entity]; order != nil {
		order.Delete(id)
		if order.Len() == 0 {
			delete(r.byEntity, t.entity)
		}
	}
	if t.name != "" {
		if names := r.named[t.entity]; names != nil && names[t.name] == id {
			delete(names, t.name)
			if len(names) == 0 {
				delete(r.named, t.entity)
			}
		}
	}
}
