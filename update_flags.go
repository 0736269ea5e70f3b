package main

// updateFlag is the change mask describing which resource categories must be
// regenerated before the next draw. Producers (the command feed, input
// handling) only ever raise bits; the synchronizer clears each bit after the
// matching resource has been rebuilt successfully, so a failed rebuild is
// retried on the next tick.
type updateFlag uint16

const (
	updateSliceSize updateFlag = 1 << iota
	updateSlicePos
	updateSourcePos
	updateSourceDrive
	updateColorMap
	updateWavenum
	updateCameraPos
	updateSourceAlpha

	updateAll = updateSliceSize | updateSlicePos | updateSourcePos |
		updateSourceDrive | updateColorMap | updateWavenum |
		updateCameraPos | updateSourceAlpha
)

// initSource is the array-reset bit; it is the same category as a source
// position change since both replace the position encoding wholesale.
const initSource = updateSourcePos

// raise sets the given bits.
func (f *updateFlag) raise(bits updateFlag) {
	*f |= bits
}

// clear removes the given bits.
func (f *updateFlag) clear(bits updateFlag) {
	*f &^= bits
}

// contains reports whether all given bits are set.
func (f updateFlag) contains(bits updateFlag) bool {
	return f&bits == bits
}

// containsAny reports whether any of the given bits is set.
func (f updateFlag) containsAny(bits updateFlag) bool {
	return f&bits != 0
}

// empty reports whether no bit is set.
func (f updateFlag) empty() bool {
	return f == 0
}
