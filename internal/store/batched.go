package store

import "sync"

// BatchedStore buffers inserts in memory using fake (negative) IDs. It
// implements DataStore so the model writer does not need to know whether
// it is hitting SQLite or an in-memory buffer; CommitBatch later writes
// everything in a single transaction.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Symbols        []Symbol
	FunctionParams []FunctionParam
	TypeParams     []TypeParam
	Bases          []Base
	Includes       []Include
	Macros         []Macro

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertSymbol(sym *Symbol) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	sym.ID = fakeID
	b.Symbols = append(b.Symbols, *sym)
	return fakeID, nil
}

func (b *BatchedStore) InsertFunctionParam(fp *FunctionParam) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	fp.ID = fakeID
	b.FunctionParams = append(b.FunctionParams, *fp)
	return fakeID, nil
}

func (b *BatchedStore) InsertTypeParam(tp *TypeParam) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	tp.ID = fakeID
	b.TypeParams = append(b.TypeParams, *tp)
	return fakeID, nil
}

func (b *BatchedStore) InsertBase(base *Base) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	base.ID = fakeID
	b.Bases = append(b.Bases, *base)
	return fakeID, nil
}

func (b *BatchedStore) InsertInclude(inc *Include) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	inc.ID = fakeID
	b.Includes = append(b.Includes, *inc)
	return fakeID, nil
}

func (b *BatchedStore) InsertMacro(m *Macro) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	m.ID = fakeID
	b.Macros = append(b.Macros, *m)
	return fakeID, nil
}

// Len returns the number of buffered rows across all tables.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Symbols) + len(b.FunctionParams) + len(b.TypeParams) +
		len(b.Bases) + len(b.Includes) + len(b.Macros)
}
