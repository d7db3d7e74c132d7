package store

import (
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// (positive) IDs, and all FK references within the batch are rewritten
// using the fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Symbols (depend on unit_id, which is already real, and on parents
//     inserted before them)
//  2. FunctionParams, TypeParams, Bases (depend on symbol_id)
//  3. Includes, Macros (depend on unit_id only)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64, len(batch.Symbols))
	remap := func(id int64) (int64, error) {
		if id >= 0 {
			return id, nil
		}
		realID, ok := fakeToReal[id]
		if !ok {
			return 0, fmt.Errorf("symbol_id=%d not in fakeToReal map (have %d symbols)", id, len(batch.Symbols))
		}
		return realID, nil
	}

	// 1. Symbols
	for _, sym := range batch.Symbols {
		if sym.ParentSymbolID != nil && *sym.ParentSymbolID < 0 {
			realID, err := remap(*sym.ParentSymbolID)
			if err != nil {
				return fmt.Errorf("commit batch: symbol %q parent: %w", sym.Name, err)
			}
			sym.ParentSymbolID = &realID
		}
		realID, err := insertSymbol(tx, &sym)
		if err != nil {
			return fmt.Errorf("commit batch: symbol %q: %w", sym.Name, err)
		}
		fakeToReal[sym.ID] = realID
	}

	// 2. Per-symbol rows
	for _, fp := range batch.FunctionParams {
		if fp.SymbolID, err = remap(fp.SymbolID); err != nil {
			return fmt.Errorf("commit batch: function param %q: %w", fp.Name, err)
		}
		if _, err := insertFunctionParam(tx, &fp); err != nil {
			return fmt.Errorf("commit batch: function param %q: %w", fp.Name, err)
		}
	}
	for _, tp := range batch.TypeParams {
		if tp.SymbolID, err = remap(tp.SymbolID); err != nil {
			return fmt.Errorf("commit batch: type param %q: %w", tp.Name, err)
		}
		if _, err := insertTypeParam(tx, &tp); err != nil {
			return fmt.Errorf("commit batch: type param %q: %w", tp.Name, err)
		}
	}
	for _, b := range batch.Bases {
		if b.SymbolID, err = remap(b.SymbolID); err != nil {
			return fmt.Errorf("commit batch: base %q: %w", b.Name, err)
		}
		if _, err := insertBase(tx, &b); err != nil {
			return fmt.Errorf("commit batch: base %q: %w", b.Name, err)
		}
	}

	// 3. Per-unit rows
	for _, inc := range batch.Includes {
		if _, err := insertInclude(tx, &inc); err != nil {
			return fmt.Errorf("commit batch: include %q: %w", inc.Path, err)
		}
	}
	for _, m := range batch.Macros {
		if _, err := insertMacro(tx, &m); err != nil {
			return fmt.Errorf("commit batch: macro %q: %w", m.Name, err)
		}
	}

	return tx.Commit()
}
