// Package input turns held-key state into per-frame camera deltas.
package input

// KeySet is the set of currently held keys plus scroll accumulated since the last frame. Window
// callbacks write it and the frame loop reads it once per frame on the same thread, so it
// carries no lock.
type KeySet struct {
	held   map[uint32]bool
	scroll float32
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{held: make(map[uint32]bool)}
}

// Press marks keyCode as held.
func (k *KeySet) Press(keyCode uint32) {
	k.held[keyCode] = true
}

// Release marks keyCode as no longer held.
func (k *KeySet) Release(keyCode uint32) {
	delete(k.held, keyCode)
}

// Held reports whether keyCode is held.
func (k *KeySet) Held(keyCode uint32) bool {
	return k.held[keyCode]
}

// Len returns the number of held keys.
func (k *KeySet) Len() int {
	return len(k.held)
}

// Clear releases every key and drops pending scroll, as needed when the window loses focus.
func (k *KeySet) Clear() {
	clear(k.held)
	k.scroll = 0
}

// Scroll adds a wheel delta; positive is away from the user.
func (k *KeySet) Scroll(delta float32) {
	k.scroll += delta
}

// TakeScroll returns the scroll accumulated since the last call and resets it.
func (k *KeySet) TakeScroll() float32 {
	s := k.scroll
	k.scroll = 0
	return s
}
