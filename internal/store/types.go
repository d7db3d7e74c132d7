package store

import "time"

type Unit struct {
	ID          int64
	Path        string
	Language    string
	Standard    string
	Fingerprint string
	IndexedAt   time.Time
}

type Symbol struct {
	ID             int64
	UnitID         int64
	Name           string
	QualifiedName  string
	Kind           string
	Visibility     string
	Modifiers      []string
	TypeExpr       string
	ValueExpr      string
	SignatureHash  string
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
	ParentSymbolID *int64
}

type FunctionParam struct {
	ID          int64
	SymbolID    int64
	Name        string
	Ordinal     int
	TypeExpr    string
	HasDefault  bool
	DefaultExpr string
	IsVariadic  bool
}

type TypeParam struct {
	ID          int64
	SymbolID    int64
	Name        string
	Ordinal     int
	ParamKind   string
	DefaultExpr string
}

type Base struct {
	ID        int64
	SymbolID  int64
	Name      string
	Ordinal   int
	Access    string
	IsVirtual bool
}

type Include struct {
	ID       int64
	UnitID   int64
	Path     string
	IsSystem bool
	Line     int
}

type Macro struct {
	ID           int64
	UnitID       int64
	Name         string
	Value        string
	Params       []string
	FunctionLike bool
	Origin       string
	Line         int
}
