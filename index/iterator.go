package index

// ListIterator walks a list as it was when the iterator was created. Later
// writes to the list, through any view, are not observed.
type ListIterator struct {
	list *List
	pos  uint64
	end  uint64
}

// Next returns the next value, or false once the iterator is exhausted.
func (it *ListIterator) Next() ([]byte, bool) {
	v, ok := it.Peek()
	if ok {
		it.pos++
	}
	return v, ok
}

// Peek returns the value Next would return without advancing.
func (it *ListIterator) Peek() ([]byte, bool) {
	if it.pos >= it.end {
		return nil, false
	}
	return it.list.element(it.pos)
}

// Remaining returns how many values Next will still yield.
func (it *ListIterator) Remaining() uint64 {
	if it.pos >= it.end {
		return 0
	}
	return it.end - it.pos
}
