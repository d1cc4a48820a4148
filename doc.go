// Package indexbind exposes append-only list indexes over a versioned
// key-value store to callers that can only pass integers and byte buffers.
//
// # Architecture Overview
//
// The module is organized into several packages with distinct responsibilities:
//
//	indexbind/
//	├── storage/         Database, immutable snapshots, buffered forks and merge
//	├── index/           List and group list indexes laid out over a view
//	├── resource/        Generation-checked handle table
//	├── binding/         Handle-based entry points with fault containment
//	├── host/            wazero host module exposing the entry points to guests
//	├── configuration/   Flags, YAML overlay and logger construction
//	├── errors/          Structured error types
//	└── cmd/indexctl/    Command line and interactive front end
//
// # Quick Start
//
// Open a database, write through a fork and read back through a snapshot:
//
//	b := binding.New(resource.NewTable(), logger)
//
//	db, _ := b.DatabaseMemory()
//	fork, _ := b.ViewFork(db)
//	list, _ := b.ListCreate("events", fork)
//	b.ListAdd(list, []byte("started"))
//	b.DatabaseMerge(db, fork)
//
//	snap, _ := b.ViewSnapshot(db)
//	events, _ := b.ListCreate("events", snap)
//	v, _ := b.ListGet(events, 0) // "started"
//
// Every value is addressed by a handle. Destroying a database, view, list
// or iterator invalidates its handle; reusing it afterwards fails with a
// stale_handle error instead of touching freed state.
//
// # Views
//
// A snapshot is an immutable point-in-time view: mutations through it fail
// with a protocol_violation error. A fork records writes in a patch that
// becomes visible to other views only after the database merges it. A
// merged fork is sealed.
//
// # WebAssembly Guests
//
// The host package registers the same entry points as the "indexbind"
// import module of a wazero runtime:
//
//	rt := wazero.NewRuntime(ctx)
//	if _, err := host.New(b).Instantiate(ctx, rt); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Snapshots may be read from any number of goroutines. A fork, and every
// list created over it, must be used by one goroutine at a time. The handle
// table is safe for concurrent use.
package indexbind
