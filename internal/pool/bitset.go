package pool

// BitSet is a small index set over pool slots. Client destination masks and
// weapon-slot type masks both fit comfortably in one word.
type BitSet uint32

// Empty is the set containing nothing.
const Empty BitSet = 0

// Insert returns s with index i added.
func (s BitSet) Insert(i uint16) BitSet { return s | 1<<i }

// Remove returns s with index i removed.
func (s BitSet) Remove(i uint16) BitSet { return s &^ (1 << i) }

// Contains reports whether index i is in s.
func (s BitSet) Contains(i uint16) bool { return s&(1<<i) != 0 }

// Disjoint reports whether s and t share no indices.
func (s BitSet) Disjoint(t BitSet) bool { return s&t == 0 }

// IsEmpty reports whether s contains nothing.
func (s BitSet) IsEmpty() bool { return s == Empty }
