package binding

import (
	"go.uber.org/zap"

	"github.com/wippyai/indexbind/configuration"
	"github.com/wippyai/indexbind/errors"
	"github.com/wippyai/indexbind/resource"
	"github.com/wippyai/indexbind/storage"
)

// DatabaseOpen opens the database described by cfg.
func (b *Binding) DatabaseOpen(cfg *configuration.Configuration) (resource.Handle, error) {
	return guard(b, "database_open", func() (resource.Handle, error) {
		db, err := storage.Open(cfg)
		if err != nil {
			return 0, err
		}
		h, err := b.insert(TypeDatabase, db)
		if err != nil {
			db.Close()
			return 0, err
		}
		return h, nil
	})
}

// DatabaseMemory creates a database that is never persisted.
func (b *Binding) DatabaseMemory() (resource.Handle, error) {
	return guard(b, "database_memory", func() (resource.Handle, error) {
		return b.insert(TypeDatabase, storage.NewMemoryDatabase())
	})
}

// DatabaseMerge merges the fork behind view into db. The view handle stays
// live but its fork is sealed.
func (b *Binding) DatabaseMerge(db, view resource.Handle) error {
	return b.Guard("database_merge", func() error {
		d, err := resolve[*storage.Database](b, db, TypeDatabase)
		if err != nil {
			return err
		}
		v, err := resolve[storage.View](b, view, TypeView)
		if err != nil {
			return err
		}
		fork, ok := v.Fork()
		if !ok {
			return errors.New(errors.PhaseStorage, errors.KindProtocolViolation).
				Detail("unable to merge a snapshot").
				Build()
		}
		return d.Merge(fork)
	})
}

// DatabaseFree closes db and invalidates its handle. Views taken from it
// stay readable.
func (b *Binding) DatabaseFree(db resource.Handle) error {
	return b.Guard("database_free", func() error {
		v, err := b.table.RemoveTyped(db, TypeDatabase)
		if err != nil {
			return err
		}
		d := v.(*storage.Database)
		if err := d.Close(); err != nil {
			b.logger.Warn("close database", zap.String("db", d.ID()), zap.Error(err))
			return err
		}
		return nil
	})
}

// ViewSnapshot takes a snapshot of the committed state of db.
func (b *Binding) ViewSnapshot(db resource.Handle) (resource.Handle, error) {
	return guard(b, "view_snapshot", func() (resource.Handle, error) {
		d, err := resolve[*storage.Database](b, db, TypeDatabase)
		if err != nil {
			return 0, err
		}
		return b.insert(TypeView, storage.SnapshotView(d.Snapshot()))
	})
}

// ViewFork starts a fork of db.
func (b *Binding) ViewFork(db resource.Handle) (resource.Handle, error) {
	return guard(b, "view_fork", func() (resource.Handle, error) {
		d, err := resolve[*storage.Database](b, db, TypeDatabase)
		if err != nil {
			return 0, err
		}
		return b.insert(TypeView, storage.ForkView(d.Fork()))
	})
}

// ViewFree invalidates a view handle. Lists created over the view must be
// freed first; this is not checked.
func (b *Binding) ViewFree(view resource.Handle) error {
	return b.Guard("view_free", func() error {
		return b.free(view, TypeView)
	})
}
