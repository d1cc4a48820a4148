// Package resource provides the handle table that stands between native
// objects and a foreign caller.
//
// A foreign caller never holds a Go pointer. It holds a Handle, an opaque
// integer issued by a Table, and passes it back on every call. The Table
// owns the value; the caller owns only the token.
//
// # Handle Table
//
// The Table maps integer handles to Go values:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle, err := table.Insert(typeID, myValue)
//
//	// Retrieve value by handle
//	value, err := table.Get(handle)
//
//	// Remove and get value (destroy)
//	value, err := table.Remove(handle)
//
// # Stale Handles
//
// A handle packs a slot index and a generation counter. Removing a value
// bumps the generation of its slot, so a token that was already destroyed
// resolves to a stale_handle error instead of to whatever value reuses the
// slot later. Removing the same handle twice fails the same way and leaves
// every other entry untouched.
//
// Generations are 31 bits wide and the slot index 32 bits, so every handle
// is a non-negative int64 and can cross a boundary that only speaks signed
// 64-bit integers.
//
// # Type Safety
//
// Handles are typed - each resource type gets a unique type ID:
//
//	const ListTypeID = 3
//	const IteratorTypeID = 4
//
//	value, err := table.GetTyped(listHandle, ListTypeID)     // ok
//	value, err := table.GetTyped(listHandle, IteratorTypeID) // type_mismatch
//
// Resolve combines the type ID check with a Go type assertion:
//
//	list, err := resource.Resolve[*index.List](table, h, ListTypeID)
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(event resource.Event) {
//	    log.Printf("resource %s %s", event.Handle, event.Type)
//	}))
//
// # Process-wide Table
//
// Default returns a table shared by the whole process. It is created on
// first use and never reset; callers that need isolation (tests, embedded
// hosts) create their own with NewTable.
//
// # Memory Management
//
// Resources are not garbage collected on behalf of the caller. The caller
// must Remove every handle it was given exactly once. Values implementing
// Dropper are notified on Remove and on Close.
package resource
