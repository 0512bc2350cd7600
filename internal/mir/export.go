package mir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotSchema is bumped whenever Snapshot changes shape.
const snapshotSchema uint16 = 1

// ErrSnapshotSchema is returned when a snapshot was written by another
// schema version.
var ErrSnapshotSchema = errors.New("mir: snapshot schema mismatch")

// Snapshot is the exported form of an analyzed program: enough to diff two
// builds or to inspect the IR without the compiler.
type Snapshot struct {
	Schema  uint16
	Globals []SnapshotVar
	Fns     []SnapshotFn
	Types   []SnapshotType
}

type SnapshotVar struct {
	Name  string
	Type  string
	Value string
	Const bool
}

type SnapshotFn struct {
	Name     string
	LinkName string
	Type     string
	Bindings string
	Extern   bool
	Comptime bool
	Instance bool
	Blocks   []SnapshotBlock
}

type SnapshotBlock struct {
	Name   string
	Instrs []string
}

// SnapshotType is one RTTI record.
type SnapshotType struct {
	Name    string
	Kind    string
	Size    int64
	Align   int64
	Members []string
}

// Snapshot collects the program state. Recipes are represented by their
// instances only.
func (p *Program) Snapshot() *Snapshot {
	s := &Snapshot{Schema: snapshotSchema}
	for _, v := range p.Globals() {
		s.Globals = append(s.Globals, SnapshotVar{Name: v.ID.Str, Type: v.Type.String(), Value: v.Value.String(), Const: v.IsConst})
	}
	for _, fn := range p.Fns() {
		if fn.Has(FnRecipe) || fn.Type == nil {
			continue
		}
		sf := SnapshotFn{
			Name:     fn.Name(),
			LinkName: fn.LinkName,
			Type:     fn.Type.String(),
			Bindings: fn.Bindings,
			Extern:   fn.Has(FnExtern),
			Comptime: fn.Has(FnComptime),
			Instance: fn.Has(FnInstance),
		}
		pr := newPrinter()
		for _, b := range fn.Blocks {
			if b.State == StateErased {
				continue
			}
			sf.Blocks = append(sf.Blocks, SnapshotBlock{Name: blockName(b), Instrs: pr.block(b)})
		}
		s.Fns = append(s.Fns, sf)
	}
	for _, e := range p.RTTI.Entries() {
		st := SnapshotType{Name: e.Name, Kind: e.Kind.String(), Size: e.Size, Align: e.Align}
		for _, m := range e.Members {
			st.Members = append(st.Members, fmt.Sprintf("%s@%d", m.Name, m.Offset))
		}
		s.Types = append(s.Types, st)
	}
	return s
}

// WriteSnapshot encodes s with msgpack into path, replacing it atomically.
func WriteSnapshot(path string, s *Snapshot) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if err := msgpack.NewEncoder(f).Encode(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// атомарная замена
	return os.Rename(f.Name(), path)
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var s Snapshot
	if err := msgpack.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if s.Schema != snapshotSchema {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSnapshotSchema, s.Schema, snapshotSchema)
	}
	return &s, nil
}
