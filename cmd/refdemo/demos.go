package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/genarena"
	"github.com/hupe1980/genarena/blobstore"
	"github.com/hupe1980/genarena/persistence"
	"github.com/hupe1980/genarena/resource"
)

type demo struct {
	cfg Config
	log *slog.Logger
}

var demos = map[string]func(context.Context, *demo) error{
	"ref_safety":            refSafety,
	"struct_containing_ref": structContainingRef,
	"interior_mutability":   interiorMutability,
	"double_free":           doubleFree,
	"snapshot":              snapshot,
}

// expect returns an error unless err matches target.
func expect(err, target error) error {
	if !errors.Is(err, target) {
		return fmt.Errorf("expected %v, got %v", target, err)
	}
	return nil
}

func (d *demo) options(extra ...genarena.Option) ([]genarena.Option, error) {
	c, err := persistence.ParseCompression(d.cfg.Compression)
	if err != nil {
		return nil, err
	}
	opts := []genarena.Option{
		genarena.WithCompression(c),
		genarena.WithLogger(&genarena.Logger{Logger: d.log}),
	}
	if d.cfg.MemoryLimit > 0 {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: d.cfg.MemoryLimit})
		opts = append(opts, genarena.WithResourceController(rc))
	}
	return append(opts, extra...), nil
}

// refSafety frees a value and then tries to read it through the old handle.
func refSafety(_ context.Context, d *demo) error {
	opts, err := d.options()
	if err != nil {
		return err
	}
	arena, err := genarena.New[[]int](opts...)
	if err != nil {
		return err
	}

	parabola, err := arena.Insert([]int{9, 4, 1, 0, 1, 4, 9})
	if err != nil {
		return err
	}

	var smallest int
	if err := arena.Read(parabola, func(v []int) error {
		smallest = v[0]
		for _, x := range v[1:] {
			smallest = min(smallest, x)
		}
		return nil
	}); err != nil {
		return err
	}
	d.log.Info("smallest element", "handle", parabola, "value", smallest)

	if err := arena.Free(parabola); err != nil {
		return err
	}
	err = arena.Read(parabola, func([]int) error { return nil })
	d.log.Info("read after free refused", "error", err)
	return expect(err, genarena.ErrStaleHandle)
}

type holder struct {
	R genarena.Handle
}

// structContainingRef stores a handle inside another value and lets the
// referent die first.
func structContainingRef(_ context.Context, d *demo) error {
	opts, err := d.options()
	if err != nil {
		return err
	}
	ints, err := genarena.New[int](opts...)
	if err != nil {
		return err
	}

	var s holder
	{
		x, err := ints.Insert(10)
		if err != nil {
			return err
		}
		s = holder{R: x}
		if err := ints.Read(s.R, func(v int) error {
			d.log.Info("referent alive", "handle", s.R, "value", v)
			return nil
		}); err != nil {
			return err
		}
		if err := ints.Free(x); err != nil {
			return err
		}
	}

	// The slot is reused by an unrelated value.
	other, err := ints.Insert(99)
	if err != nil {
		return err
	}
	d.log.Info("slot reused", "old", s.R, "new", other)

	err = ints.Read(s.R, func(int) error { return nil })
	d.log.Info("holder outlived its referent", "error", err)
	return expect(err, genarena.ErrStaleHandle)
}

// Robot keeps a hit counter and a log that are updated through a shared
// handle.
type Robot struct {
	Name           string   `json:"name"`
	HardwareErrors uint32   `json:"hardware_errors"`
	Log            []string `json:"log"`
}

func addHardwareError(a *genarena.Arena[Robot], h genarena.Handle) error {
	return a.Update(h, func(r *Robot) error {
		r.HardwareErrors++
		return nil
	})
}

func writeLog(a *genarena.Arena[Robot], h genarena.Handle, entry string) error {
	return a.Update(h, func(r *Robot) error {
		r.Log = append(r.Log, entry)
		return nil
	})
}

// interiorMutability mutates a robot through its handle and shows that a
// writer is refused while a reader holds the value.
func interiorMutability(_ context.Context, d *demo) error {
	opts, err := d.options()
	if err != nil {
		return err
	}
	robots, err := genarena.New[Robot](opts...)
	if err != nil {
		return err
	}

	h, err := robots.Insert(Robot{Name: "r2", Log: []string{"Initialized"}})
	if err != nil {
		return err
	}

	if err := addHardwareError(robots, h); err != nil {
		return err
	}
	if err := writeLog(robots, h, "found an hardware error"); err != nil {
		return err
	}

	reader, err := robots.Get(h)
	if err != nil {
		return err
	}
	d.log.Info("robot", "name", reader.Pointer().Name,
		"hardware_errors", reader.Pointer().HardwareErrors,
		"log", strings.Join(reader.Pointer().Log, "; "))

	err = writeLog(robots, h, "while being read")
	reader.Release()
	d.log.Info("write during read refused", "error", err)
	if err := expect(err, genarena.ErrBorrowConflict); err != nil {
		return err
	}

	return writeLog(robots, h, "after read")
}

// doubleFree frees the same handle twice.
func doubleFree(_ context.Context, d *demo) error {
	opts, err := d.options()
	if err != nil {
		return err
	}
	arena, err := genarena.New[string](opts...)
	if err != nil {
		return err
	}

	h, err := arena.Insert("once")
	if err != nil {
		return err
	}
	if err := arena.Free(h); err != nil {
		return err
	}
	err = arena.Free(h)
	d.log.Info("second free refused", "error", err, "stats", arena.String())
	return expect(err, genarena.ErrStaleHandle)
}

// snapshot saves an arena to a local blob store and restores it.
func snapshot(ctx context.Context, d *demo) error {
	dir := d.cfg.SnapshotDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "refdemo-*")
		if err != nil {
			return err
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		dir = tmp
	}
	store, err := blobstore.NewLocalStore(dir)
	if err != nil {
		return err
	}

	opts, err := d.options()
	if err != nil {
		return err
	}
	robots, err := genarena.New[Robot](opts...)
	if err != nil {
		return err
	}

	gone, err := robots.Insert(Robot{Name: "bb8"})
	if err != nil {
		return err
	}
	kept, err := robots.Insert(Robot{Name: "r2", Log: []string{"Initialized"}})
	if err != nil {
		return err
	}
	if err := robots.Free(gone); err != nil {
		return err
	}

	if err := robots.SaveSnapshot(ctx, store, "robots-0001.gar"); err != nil {
		return err
	}

	restored, err := genarena.LoadSnapshot[Robot](ctx, store, opts...)
	if err != nil {
		return err
	}
	if err := restored.Read(kept, func(r Robot) error {
		d.log.Info("restored", "handle", kept, "name", r.Name, "dir", dir)
		return nil
	}); err != nil {
		return err
	}

	err = restored.Read(gone, func(Robot) error { return nil })
	d.log.Info("freed handle still stale after restore", "error", err)
	return expect(err, genarena.ErrStaleHandle)
}
