// Package cppreflect gives code generators cached access to the semantic
// model of C and C++ translation units without recompiling them.
//
// # Model
//
// A project embeds two kinds of data, usually through generated
// registration code:
//
//   - a compilation database (compile_commands.json) wrapped in a
//     [DatabaseEntry], mapping absolute source paths to build commands;
//   - one snapshot per translation unit wrapped in a [UnitEntry], holding
//     the unit's declarations, macros and includes as produced by
//     [Generate].
//
// Both are registered on a [Registry]:
//
//	reg := cppreflect.New()
//	if err := reg.RegisterDatabase(cppreflect.NewDatabaseEntry(cppreflect.NewBlob(dbBytes))); err != nil { ... }
//	reg.RegisterUnit(cppreflect.NewUnitEntry("/proj/src/shape.cpp", cppreflect.NewBlob(snapBytes)))
//
//	m, err := reg.Model("src/shape.cpp")
//	if err != nil { ... }
//	circle, ok := m.Lookup("geo::Circle")
//
// # Laziness
//
// The database is parsed on the first [Registry.Model] call and never
// again. A unit is materialized on its first request: the registry looks
// up the unit's build command, the frontend rebuilds the compiler session
// from it (language, standard, defines, include paths) and the snapshot is
// loaded into that session. Later requests, from any goroutine, return the
// same *Model.
//
// # Path resolution
//
// Absolute paths are used as-is. Relative paths match a trailing,
// component-aligned suffix of the database's paths: "foo/bar.cpp" and
// "bar.cpp" both match "/proj/src/foo/bar.cpp", "x/bar.cpp" does not. A
// suffix matching several database paths fails with [ErrAmbiguousPath]
// unless the registry was created [WithFirstMatch].
//
// # Errors
//
// Every failure is an [*Error] carrying an [ErrorKind] (configuration,
// resolution or materialization) and wrapping one of the package's
// sentinel errors, so callers can use [errors.Is] and [KindOf].
package cppreflect
