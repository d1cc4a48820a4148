package storage

// View is either a Snapshot or a Fork, as handed to the index layer.
type View struct {
	snapshot *Snapshot
	fork     *Fork
}

// SnapshotView wraps s in a read-only view.
func SnapshotView(s *Snapshot) View {
	return View{snapshot: s}
}

// ForkView wraps f in a view that accepts writes.
func ForkView(f *Fork) View {
	return View{fork: f}
}

// Access returns the read surface of the view.
func (v View) Access() Access {
	if v.fork != nil {
		return v.fork
	}
	return v.snapshot
}

// Fork returns the fork behind a mutable view.
func (v View) Fork() (*Fork, bool) {
	return v.fork, v.fork != nil
}

// IsMutable reports whether the view is backed by a fork.
func (v View) IsMutable() bool {
	return v.fork != nil
}

// PointInTime returns an immutable view of the current state. For a
// snapshot that is the snapshot itself.
func (v View) PointInTime() *Snapshot {
	if v.fork != nil {
		return v.fork.Snapshot()
	}
	return v.snapshot
}

func (v View) String() string {
	if v.fork != nil {
		return "fork"
	}
	return "snapshot"
}
