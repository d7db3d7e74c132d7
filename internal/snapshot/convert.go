package snapshot

import (
	"fmt"

	"github.com/jward/cppreflect/internal/model"
	"github.com/jward/cppreflect/internal/store"
)

// Write stores every declaration, macro and include of m under unitID.
// Declarations are written in the order the model indexed them, so a parent
// always precedes its children.
func Write(ds store.DataStore, unitID int64, m *model.Model) error {
	ids := make(map[*model.Decl]int64, m.Len())
	for _, d := range m.All() {
		sym := &store.Symbol{
			UnitID:        unitID,
			Name:          d.Name,
			QualifiedName: d.QualifiedName,
			Kind:          d.Kind,
			Visibility:    d.Visibility,
			Modifiers:     d.Modifiers,
			TypeExpr:      d.Type,
			ValueExpr:     d.Value,
			SignatureHash: d.SignatureHash,
			StartLine:     d.Range.Start.Line,
			StartCol:      d.Range.Start.Col,
			EndLine:       d.Range.End.Line,
			EndCol:        d.Range.End.Col,
		}
		if d.Parent != nil {
			pid, ok := ids[d.Parent]
			if !ok {
				return fmt.Errorf("write %s: parent %s not yet written", d.QualifiedName, d.Parent.QualifiedName)
			}
			sym.ParentSymbolID = &pid
		}
		id, err := ds.InsertSymbol(sym)
		if err != nil {
			return fmt.Errorf("write %s: %w", d.QualifiedName, err)
		}
		ids[d] = id

		for _, p := range d.Params {
			if _, err := ds.InsertFunctionParam(&store.FunctionParam{
				SymbolID:    id,
				Name:        p.Name,
				Ordinal:     p.Ordinal,
				TypeExpr:    p.Type,
				HasDefault:  p.Default != "",
				DefaultExpr: p.Default,
				IsVariadic:  p.Variadic,
			}); err != nil {
				return fmt.Errorf("write %s param: %w", d.QualifiedName, err)
			}
		}
		for _, tp := range d.TypeParams {
			if _, err := ds.InsertTypeParam(&store.TypeParam{
				SymbolID:    id,
				Name:        tp.Name,
				Ordinal:     tp.Ordinal,
				ParamKind:   tp.Kind,
				DefaultExpr: tp.Default,
			}); err != nil {
				return fmt.Errorf("write %s type param: %w", d.QualifiedName, err)
			}
		}
		for i, b := range d.Bases {
			if _, err := ds.InsertBase(&store.Base{
				SymbolID:  id,
				Name:      b.Name,
				Ordinal:   i,
				Access:    b.Access,
				IsVirtual: b.Virtual,
			}); err != nil {
				return fmt.Errorf("write %s base: %w", d.QualifiedName, err)
			}
		}
	}

	for _, inc := range m.Includes {
		if _, err := ds.InsertInclude(&store.Include{
			UnitID:   unitID,
			Path:     inc.Path,
			IsSystem: inc.System,
			Line:     inc.Line,
		}); err != nil {
			return fmt.Errorf("write include %s: %w", inc.Path, err)
		}
	}
	for _, mac := range m.Macros {
		if _, err := ds.InsertMacro(&store.Macro{
			UnitID:       unitID,
			Name:         mac.Name,
			Value:        mac.Value,
			Params:       mac.Params,
			FunctionLike: mac.FunctionLike,
			Origin:       mac.Origin,
			Line:         mac.Line,
		}); err != nil {
			return fmt.Errorf("write macro %s: %w", mac.Name, err)
		}
	}
	return nil
}

// Read rebuilds the model of the unit stored under path. Declaration IDs
// are the stored symbol IDs.
func Read(s *store.Store, path string) (*model.Model, error) {
	u, err := s.UnitByPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: no unit %s in payload", ErrCorrupt, path)
	}
	m := model.New(u.Path, u.Language, u.Standard, u.Fingerprint)

	syms, err := s.SymbolsByUnit(u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	params, err := s.FunctionParamsByUnit(u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	tparams, err := s.TypeParamsByUnit(u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	bases, err := s.BasesByUnit(u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	paramsBySym := make(map[int64][]*model.Param)
	for _, p := range params {
		paramsBySym[p.SymbolID] = append(paramsBySym[p.SymbolID], &model.Param{
			Name: p.Name, Ordinal: p.Ordinal, Type: p.TypeExpr, Default: p.DefaultExpr, Variadic: p.IsVariadic,
		})
	}
	tparamsBySym := make(map[int64][]*model.TypeParam)
	for _, tp := range tparams {
		tparamsBySym[tp.SymbolID] = append(tparamsBySym[tp.SymbolID], &model.TypeParam{
			Name: tp.Name, Ordinal: tp.Ordinal, Kind: tp.ParamKind, Default: tp.DefaultExpr,
		})
	}
	basesBySym := make(map[int64][]*model.Base)
	for _, b := range bases {
		basesBySym[b.SymbolID] = append(basesBySym[b.SymbolID], &model.Base{
			Name: b.Name, Access: b.Access, Virtual: b.IsVirtual,
		})
	}

	for _, sym := range syms {
		var parent *model.Decl
		if sym.ParentSymbolID != nil {
			p, ok := m.Decl(*sym.ParentSymbolID)
			if !ok {
				return nil, fmt.Errorf("%w: symbol %d precedes its parent %d", ErrCorrupt, sym.ID, *sym.ParentSymbolID)
			}
			parent = p
		}
		m.Add(parent, &model.Decl{
			ID:            sym.ID,
			Name:          sym.Name,
			QualifiedName: sym.QualifiedName,
			Kind:          sym.Kind,
			Visibility:    sym.Visibility,
			Modifiers:     sym.Modifiers,
			Type:          sym.TypeExpr,
			Value:         sym.ValueExpr,
			SignatureHash: sym.SignatureHash,
			Range: model.Range{
				Start: model.Position{Line: sym.StartLine, Col: sym.StartCol},
				End:   model.Position{Line: sym.EndLine, Col: sym.EndCol},
			},
			Params:     paramsBySym[sym.ID],
			TypeParams: tparamsBySym[sym.ID],
			Bases:      basesBySym[sym.ID],
		})
	}

	incs, err := s.IncludesByUnit(u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for _, inc := range incs {
		m.AddInclude(&model.Include{Path: inc.Path, System: inc.IsSystem, Line: inc.Line})
	}
	macros, err := s.MacrosByUnit(u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for _, mac := range macros {
		m.AddMacro(&model.Macro{
			Name:         mac.Name,
			Value:        mac.Value,
			Params:       mac.Params,
			FunctionLike: mac.FunctionLike,
			Origin:       mac.Origin,
			Line:         mac.Line,
		})
	}
	return m, nil
}
