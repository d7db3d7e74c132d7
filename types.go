package cppreflect

import (
	"github.com/jward/cppreflect/internal/compdb"
	"github.com/jward/cppreflect/internal/model"
)

// Public type aliases for the internal types handed out by the Registry.
// They are identical to the internal types; no conversion is needed.

type Model = model.Model
type Decl = model.Decl
type Param = model.Param
type TypeParam = model.TypeParam
type Base = model.Base
type Macro = model.Macro
type Include = model.Include
type Position = model.Position
type Range = model.Range

type Command = compdb.Command
type Database = compdb.Database

// Declaration kinds.
const (
	KindNamespace   = model.KindNamespace
	KindClass       = model.KindClass
	KindStruct      = model.KindStruct
	KindUnion       = model.KindUnion
	KindEnum        = model.KindEnum
	KindEnumerator  = model.KindEnumerator
	KindFunction    = model.KindFunction
	KindMethod      = model.KindMethod
	KindConstructor = model.KindConstructor
	KindDestructor  = model.KindDestructor
	KindField       = model.KindField
	KindVariable    = model.KindVariable
	KindTypedef     = model.KindTypedef
	KindAlias       = model.KindAlias
)
