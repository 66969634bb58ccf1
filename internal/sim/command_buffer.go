package sim

import "sync"

const (
	commandBufferOccupancyMetricKey = "room_command_buffer_occupancy"
	commandBufferOverflowMetricKey  = "room_command_buffer_overflow_total"
	commandBufferEvictedMetricKey   = "room_command_buffer_evicted_total"
)

// CommandBuffer stores staged commands in a fixed-size ring. It is safe for
// concurrent producers and a single consumer. A leave arriving at a full ring
// displaces the newest input so a departure is never lost.
type CommandBuffer struct {
	mu      sync.Mutex
	data    []Command
	head    int
	tail    int
	count   int
	metrics telemetryMetrics
}

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// NewCommandBuffer constructs a ring buffer with the provided capacity.
func NewCommandBuffer(capacity int, metrics telemetryMetrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		data:    make([]Command, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of commands the buffer can hold.
func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Push stages a command, returning false if the buffer is full and nothing
// could make room for it.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.data) {
		if cmd.Type != CommandLeave || !b.evictInputLocked() {
			if b.metrics != nil {
				b.metrics.Add(commandBufferOverflowMetricKey, 1)
			}
			return false
		}
		if b.metrics != nil {
			b.metrics.Add(commandBufferEvictedMetricKey, 1)
		}
	}
	b.data[b.tail] = cmd
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	b.storeOccupancyLocked()
	return true
}

// Drain returns all staged commands in FIFO order and clears the buffer.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	commands := make([]Command, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % len(b.data)
		commands[i] = b.data[idx]
	}
	b.head = 0
	b.tail = 0
	b.count = 0
	b.storeOccupancyLocked()
	return commands
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// evictInputLocked removes the most recently staged non-leave command,
// keeping the order of the rest.
func (b *CommandBuffer) evictInputLocked() bool {
	n := len(b.data)
	for i := b.count - 1; i >= 0; i-- {
		if b.data[(b.head+i)%n].Type == CommandLeave {
			continue
		}
		for j := i; j < b.count-1; j++ {
			b.data[(b.head+j)%n] = b.data[(b.head+j+1)%n]
		}
		b.tail = (b.tail - 1 + n) % n
		b.data[b.tail] = Command{}
		b.count--
		return true
	}
	return false
}

func (b *CommandBuffer) storeOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(commandBufferOccupancyMetricKey, uint64(b.count))
}
