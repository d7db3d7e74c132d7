package store

// DataStore is the interface for writing a unit's extracted data. Both
// Store (direct SQLite) and BatchedStore (in-memory buffering committed in
// one transaction) implement this interface.
type DataStore interface {
	// Inserts; each returns the assigned ID.
	InsertSymbol(sym *Symbol) (int64, error)
	InsertFunctionParam(fp *FunctionParam) (int64, error)
	InsertTypeParam(tp *TypeParam) (int64, error)
	InsertBase(b *Base) (int64, error)
	InsertInclude(inc *Include) (int64, error)
	InsertMacro(m *Macro) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
