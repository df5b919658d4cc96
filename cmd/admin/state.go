package main

import (
	"errors"
	"fmt"
	"io"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/guard"
	"voxelguard.ai/internal/persistence/state"
)

// stateFile edits the placed-blocks document offline. Records are loaded
// without a world filter so nothing is lost on the rewrite.
type stateFile struct {
	path   string
	blocks catalogs.BlockCatalog
}

func (s stateFile) load() (guard.State, state.LoadReport, error) {
	return state.Load(s.path, nil, s.blocks)
}

func (s stateFile) list(w io.Writer) error {
	st, rep, err := s.load()
	if err != nil {
		return err
	}
	if !rep.Found {
		fmt.Fprintf(w, "%s: no state file\n", s.path)
	}
	fmt.Fprintf(w, "unbreakable (%d):\n", len(st.Blocks))
	for _, b := range st.Blocks {
		fmt.Fprintf(w, "  %s\n", b)
	}
	fmt.Fprintf(w, "placed: %d (skipped %d)\n", len(st.Placed), rep.SkippedPlaced)
	return nil
}

func (s stateFile) add(w io.Writer, name string) error {
	id, err := s.blocks.Lookup(name)
	if err != nil {
		return err
	}
	st, _, err := s.load()
	if err != nil {
		return err
	}
	for _, b := range st.Blocks {
		if string(b) == id {
			fmt.Fprintf(w, "%s is already unbreakable\n", id)
			return nil
		}
	}
	st.Blocks = append(st.Blocks, guard.BlockType(id))
	if err := state.Save(s.path, st); err != nil {
		return err
	}
	fmt.Fprintf(w, "added %s\n", id)
	return nil
}

func (s stateFile) remove(w io.Writer, name string) error {
	id, err := s.blocks.Lookup(name)
	if err != nil {
		return err
	}
	st, _, err := s.load()
	if err != nil {
		return err
	}
	kept := st.Blocks[:0]
	for _, b := range st.Blocks {
		if string(b) != id {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(st.Blocks) {
		fmt.Fprintf(w, "%s is not unbreakable\n", id)
		return nil
	}
	st.Blocks = kept
	if err := state.Save(s.path, st); err != nil {
		return err
	}
	fmt.Fprintf(w, "removed %s\n", id)
	return nil
}

var errNoOwner = errors.New("no owner recorded")

func (s stateFile) check(w io.Writer, key string) error {
	loc, err := guard.ParseLocation(key, nil)
	if err != nil {
		return err
	}
	st, _, err := s.load()
	if err != nil {
		return err
	}
	owner, ok := st.Placed[loc]
	if !ok {
		return fmt.Errorf("%s: %w", loc, errNoOwner)
	}
	fmt.Fprintf(w, "%s owner=%s\n", loc, owner)
	return nil
}
