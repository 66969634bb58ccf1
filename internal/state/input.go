package state

import "strings"

// Buttons is a bitset of the input record's named booleans.
type Buttons uint16

const (
	ButtonLeft Buttons = 1 << iota
	ButtonRight
	ButtonUp
	ButtonDown
	ButtonDodge
	ButtonGrab
	ButtonLight
	ButtonHeavy
	ButtonGuard
	ButtonThrow
	ButtonSpecial
)

// ButtonDirections groups the directional keys.
const ButtonDirections = ButtonLeft | ButtonRight | ButtonUp | ButtonDown

var buttonNames = []struct {
	button Buttons
	name   string
}{
	{ButtonLeft, "left"},
	{ButtonRight, "right"},
	{ButtonUp, "up"},
	{ButtonDown, "down"},
	{ButtonDodge, "dodge"},
	{ButtonGrab, "grab"},
	{ButtonLight, "light"},
	{ButtonHeavy, "heavy"},
	{ButtonGuard, "guard"},
	{ButtonThrow, "throw"},
	{ButtonSpecial, "special"},
}

// Has reports whether every bit of b is set.
func (s Buttons) Has(b Buttons) bool {
	return b != 0 && s&b == b
}

// Any reports whether at least one bit of b is set.
func (s Buttons) Any(b Buttons) bool {
	return s&b != 0
}

func (s Buttons) String() string {
	if s == 0 {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, entry := range buttonNames {
		if s&entry.button != 0 {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, "+")
}

// ButtonByName resolves a wire name to its button.
func ButtonByName(name string) (Buttons, bool) {
	for _, entry := range buttonNames {
		if entry.name == name {
			return entry.button, true
		}
	}
	return 0, false
}

// ForEachButton calls fn for each single button in s in declaration order.
func ForEachButton(s Buttons, fn func(Buttons)) {
	for _, entry := range buttonNames {
		if s&entry.button != 0 {
			fn(entry.button)
		}
	}
}

// InputBuffer stores the latest buffered key state plus the edges latched
// since the last time the simulation consumed them. Presses keep their
// arrival order so first-input-commits logic can look at them.
type InputBuffer struct {
	Held     Buttons
	Presses  []Buttons
	pressed  Buttons
	released Buttons
}

// Push records a new key snapshot, deriving press and release edges against
// the previous buffered state.
func (b *InputBuffer) Push(next Buttons) {
	pressed := next &^ b.Held
	released := b.Held &^ next
	ForEachButton(pressed, func(button Buttons) {
		b.Presses = append(b.Presses, button)
	})
	b.pressed |= pressed
	b.released |= released
	b.Held = next
}

// Pressed reports whether button went down since the edges were cleared.
func (b *InputBuffer) Pressed(button Buttons) bool {
	return b.pressed&button != 0
}

// Released reports whether button went up since the edges were cleared.
func (b *InputBuffer) Released(button Buttons) bool {
	return b.released&button != 0
}

// IsHeld reports whether button is currently down.
func (b *InputBuffer) IsHeld(button Buttons) bool {
	return b.Held&button != 0
}

// FirstPress returns the earliest latched press among mask.
func (b *InputBuffer) FirstPress(mask Buttons) (Buttons, bool) {
	for _, press := range b.Presses {
		if press&mask != 0 {
			return press, true
		}
	}
	return 0, false
}

// PressCount reports how many latched presses match mask.
func (b *InputBuffer) PressCount(mask Buttons) int {
	count := 0
	for _, press := range b.Presses {
		if press&mask != 0 {
			count++
		}
	}
	return count
}

// ClearEdges drops latched edges once the simulation consumed them. Held keys
// are kept.
func (b *InputBuffer) ClearEdges() {
	b.Presses = b.Presses[:0]
	b.pressed = 0
	b.released = 0
}

// Reset clears everything including held keys.
func (b *InputBuffer) Reset() {
	b.ClearEdges()
	b.Held = 0
}
