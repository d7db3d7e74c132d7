package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// --- Metadata ---

func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// Meta returns the value stored under key, or ("", false) if absent.
func (s *Store) Meta(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("meta %s: %w", key, err)
	}
	return v, true, nil
}

// --- Unit operations ---

func (s *Store) InsertUnit(u *Unit) (int64, error) {
	id, err := lastID(s.db.Exec(
		"INSERT INTO units (path, language, standard, fingerprint, indexed_at) VALUES (?, ?, ?, ?, ?)",
		u.Path, u.Language, u.Standard, u.Fingerprint, u.IndexedAt,
	))
	if err != nil {
		return 0, fmt.Errorf("insert unit: %w", err)
	}
	u.ID = id
	return id, nil
}

const unitCols = "id, path, language, standard, fingerprint, indexed_at"

func scanUnit(sc scanner) (*Unit, error) {
	u := &Unit{}
	var fp sql.NullString
	var at sql.NullTime
	if err := sc.Scan(&u.ID, &u.Path, &u.Language, &u.Standard, &fp, &at); err != nil {
		return nil, err
	}
	u.Fingerprint = fp.String
	u.IndexedAt = at.Time
	return u, nil
}

// UnitByPath returns the unit stored under path, or nil if there is none.
func (s *Store) UnitByPath(path string) (*Unit, error) {
	u, err := scanUnit(s.db.QueryRow("SELECT "+unitCols+" FROM units WHERE path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unit by path: %w", err)
	}
	return u, nil
}

func (s *Store) Units() ([]*Unit, error) {
	rows, err := s.db.Query("SELECT " + unitCols + " FROM units ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	defer rows.Close()
	var units []*Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// --- Symbol operations ---

func insertSymbol(ex execer, sym *Symbol) (int64, error) {
	return lastID(ex.Exec(
		`INSERT INTO symbols (unit_id, name, qualified_name, kind, visibility, modifiers,
			type_expr, value_expr, signature_hash,
			start_line, start_col, end_line, end_col, parent_symbol_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.UnitID, sym.Name, sym.QualifiedName, sym.Kind, sym.Visibility, marshalList(sym.Modifiers),
		sym.TypeExpr, sym.ValueExpr, sym.SignatureHash,
		sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol, sym.ParentSymbolID,
	))
}

func (s *Store) InsertSymbol(sym *Symbol) (int64, error) {
	id, err := insertSymbol(s.db, sym)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	sym.ID = id
	return id, nil
}

// SymbolCols is the column list for symbol queries.
const SymbolCols = `id, unit_id, name, qualified_name, kind, visibility, modifiers,
	type_expr, value_expr, signature_hash,
	start_line, start_col, end_line, end_col, parent_symbol_id`

func scanSymbol(sc scanner) (*Symbol, error) {
	sym := &Symbol{}
	var vis, mods, typ, val, hash sql.NullString
	err := sc.Scan(
		&sym.ID, &sym.UnitID, &sym.Name, &sym.QualifiedName, &sym.Kind, &vis, &mods,
		&typ, &val, &hash,
		&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol, &sym.ParentSymbolID,
	)
	if err != nil {
		return nil, err
	}
	sym.Visibility = vis.String
	sym.Modifiers = unmarshalList(mods.String)
	sym.TypeExpr = typ.String
	sym.ValueExpr = val.String
	sym.SignatureHash = hash.String
	return sym, nil
}

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var symbols []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// SymbolsByUnit returns a unit's symbols in insertion order, which is the
// pre-order of the declaration tree.
func (s *Store) SymbolsByUnit(unitID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE unit_id = ? ORDER BY id", unitID)
}

func (s *Store) SymbolsByQualifiedName(name string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE qualified_name = ? ORDER BY id", name)
}

func (s *Store) SymbolsByKind(kind string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE kind = ? ORDER BY id", kind)
}

func (s *Store) SymbolChildren(symbolID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE parent_symbol_id = ? ORDER BY id", symbolID)
}

// --- FunctionParam operations ---

func insertFunctionParam(ex execer, fp *FunctionParam) (int64, error) {
	return lastID(ex.Exec(
		`INSERT INTO function_parameters (symbol_id, name, ordinal, type_expr, has_default, default_expr, is_variadic)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fp.SymbolID, fp.Name, fp.Ordinal, fp.TypeExpr, fp.HasDefault, fp.DefaultExpr, fp.IsVariadic,
	))
}

func (s *Store) InsertFunctionParam(fp *FunctionParam) (int64, error) {
	id, err := insertFunctionParam(s.db, fp)
	if err != nil {
		return 0, fmt.Errorf("insert function param: %w", err)
	}
	fp.ID = id
	return id, nil
}

const functionParamCols = "p.id, p.symbol_id, p.name, p.ordinal, p.type_expr, p.has_default, p.default_expr, p.is_variadic"

func (s *Store) queryFunctionParams(query string, arg int64) ([]*FunctionParam, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("function params: %w", err)
	}
	defer rows.Close()
	var params []*FunctionParam
	for rows.Next() {
		fp := &FunctionParam{}
		var name, typ, def sql.NullString
		if err := rows.Scan(&fp.ID, &fp.SymbolID, &name, &fp.Ordinal, &typ,
			&fp.HasDefault, &def, &fp.IsVariadic); err != nil {
			return nil, fmt.Errorf("scan function param: %w", err)
		}
		fp.Name, fp.TypeExpr, fp.DefaultExpr = name.String, typ.String, def.String
		params = append(params, fp)
	}
	return params, rows.Err()
}

func (s *Store) FunctionParams(symbolID int64) ([]*FunctionParam, error) {
	return s.queryFunctionParams(
		"SELECT "+functionParamCols+" FROM function_parameters p WHERE p.symbol_id = ? ORDER BY p.ordinal",
		symbolID)
}

// FunctionParamsByUnit returns the parameters of every symbol of a unit,
// grouped by symbol and ordered by ordinal.
func (s *Store) FunctionParamsByUnit(unitID int64) ([]*FunctionParam, error) {
	return s.queryFunctionParams(
		"SELECT "+functionParamCols+` FROM function_parameters p
		 JOIN symbols s ON s.id = p.symbol_id
		 WHERE s.unit_id = ? ORDER BY p.symbol_id, p.ordinal`,
		unitID)
}

// --- TypeParam operations ---

func insertTypeParam(ex execer, tp *TypeParam) (int64, error) {
	return lastID(ex.Exec(
		`INSERT INTO type_parameters (symbol_id, name, ordinal, param_kind, default_expr)
		 VALUES (?, ?, ?, ?, ?)`,
		tp.SymbolID, tp.Name, tp.Ordinal, tp.ParamKind, tp.DefaultExpr,
	))
}

func (s *Store) InsertTypeParam(tp *TypeParam) (int64, error) {
	id, err := insertTypeParam(s.db, tp)
	if err != nil {
		return 0, fmt.Errorf("insert type param: %w", err)
	}
	tp.ID = id
	return id, nil
}

const typeParamCols = "p.id, p.symbol_id, p.name, p.ordinal, p.param_kind, p.default_expr"

func (s *Store) queryTypeParams(query string, arg int64) ([]*TypeParam, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("type params: %w", err)
	}
	defer rows.Close()
	var params []*TypeParam
	for rows.Next() {
		tp := &TypeParam{}
		var kind, def sql.NullString
		if err := rows.Scan(&tp.ID, &tp.SymbolID, &tp.Name, &tp.Ordinal, &kind, &def); err != nil {
			return nil, fmt.Errorf("scan type param: %w", err)
		}
		tp.ParamKind, tp.DefaultExpr = kind.String, def.String
		params = append(params, tp)
	}
	return params, rows.Err()
}

func (s *Store) TypeParams(symbolID int64) ([]*TypeParam, error) {
	return s.queryTypeParams(
		"SELECT "+typeParamCols+" FROM type_parameters p WHERE p.symbol_id = ? ORDER BY p.ordinal",
		symbolID)
}

func (s *Store) TypeParamsByUnit(unitID int64) ([]*TypeParam, error) {
	return s.queryTypeParams(
		"SELECT "+typeParamCols+` FROM type_parameters p
		 JOIN symbols s ON s.id = p.symbol_id
		 WHERE s.unit_id = ? ORDER BY p.symbol_id, p.ordinal`,
		unitID)
}

// --- Base operations ---

func insertBase(ex execer, b *Base) (int64, error) {
	return lastID(ex.Exec(
		"INSERT INTO bases (symbol_id, name, ordinal, access, is_virtual) VALUES (?, ?, ?, ?, ?)",
		b.SymbolID, b.Name, b.Ordinal, b.Access, b.IsVirtual,
	))
}

func (s *Store) InsertBase(b *Base) (int64, error) {
	id, err := insertBase(s.db, b)
	if err != nil {
		return 0, fmt.Errorf("insert base: %w", err)
	}
	b.ID = id
	return id, nil
}

const baseCols = "b.id, b.symbol_id, b.name, b.ordinal, b.access, b.is_virtual"

func (s *Store) queryBases(query string, arg int64) ([]*Base, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("bases: %w", err)
	}
	defer rows.Close()
	var bases []*Base
	for rows.Next() {
		b := &Base{}
		var access sql.NullString
		if err := rows.Scan(&b.ID, &b.SymbolID, &b.Name, &b.Ordinal, &access, &b.IsVirtual); err != nil {
			return nil, fmt.Errorf("scan base: %w", err)
		}
		b.Access = access.String
		bases = append(bases, b)
	}
	return bases, rows.Err()
}

func (s *Store) Bases(symbolID int64) ([]*Base, error) {
	return s.queryBases("SELECT "+baseCols+" FROM bases b WHERE b.symbol_id = ? ORDER BY b.ordinal", symbolID)
}

func (s *Store) BasesByUnit(unitID int64) ([]*Base, error) {
	return s.queryBases(
		"SELECT "+baseCols+` FROM bases b
		 JOIN symbols s ON s.id = b.symbol_id
		 WHERE s.unit_id = ? ORDER BY b.symbol_id, b.ordinal`,
		unitID)
}

// --- Include operations ---

func insertInclude(ex execer, inc *Include) (int64, error) {
	return lastID(ex.Exec(
		"INSERT INTO includes (unit_id, path, is_system, line) VALUES (?, ?, ?, ?)",
		inc.UnitID, inc.Path, inc.IsSystem, inc.Line,
	))
}

func (s *Store) InsertInclude(inc *Include) (int64, error) {
	id, err := insertInclude(s.db, inc)
	if err != nil {
		return 0, fmt.Errorf("insert include: %w", err)
	}
	inc.ID = id
	return id, nil
}

func (s *Store) IncludesByUnit(unitID int64) ([]*Include, error) {
	rows, err := s.db.Query(
		"SELECT id, unit_id, path, is_system, line FROM includes WHERE unit_id = ? ORDER BY id",
		unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("includes by unit: %w", err)
	}
	defer rows.Close()
	var includes []*Include
	for rows.Next() {
		inc := &Include{}
		if err := rows.Scan(&inc.ID, &inc.UnitID, &inc.Path, &inc.IsSystem, &inc.Line); err != nil {
			return nil, fmt.Errorf("scan include: %w", err)
		}
		includes = append(includes, inc)
	}
	return includes, rows.Err()
}

// --- Macro operations ---

func insertMacro(ex execer, m *Macro) (int64, error) {
	return lastID(ex.Exec(
		`INSERT INTO macros (unit_id, name, value, params, function_like, origin, line)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.UnitID, m.Name, m.Value, marshalList(m.Params), m.FunctionLike, m.Origin, m.Line,
	))
}

func (s *Store) InsertMacro(m *Macro) (int64, error) {
	id, err := insertMacro(s.db, m)
	if err != nil {
		return 0, fmt.Errorf("insert macro: %w", err)
	}
	m.ID = id
	return id, nil
}

// MacrosByUnit returns a unit's macros in definition order.
func (s *Store) MacrosByUnit(unitID int64) ([]*Macro, error) {
	rows, err := s.db.Query(
		"SELECT id, unit_id, name, value, params, function_like, origin, line FROM macros WHERE unit_id = ? ORDER BY id",
		unitID,
	)
	if err != nil {
		return nil, fmt.Errorf("macros by unit: %w", err)
	}
	defer rows.Close()
	var macros []*Macro
	for rows.Next() {
		m := &Macro{}
		var value, params sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&m.ID, &m.UnitID, &m.Name, &value, &params, &m.FunctionLike, &m.Origin, &line); err != nil {
			return nil, fmt.Errorf("scan macro: %w", err)
		}
		m.Value = value.String
		m.Params = unmarshalList(params.String)
		m.Line = int(line.Int64)
		macros = append(macros, m)
	}
	return macros, rows.Err()
}
