// Package dominion is the storage and identity core of an entity-component
// system. It allocates dense 32-bit entity handles, groups entities of
// identical component shape into cache-friendly chunks, and lets callers
// enumerate entities currently in a given logical state.
//
// The package is a core, not a framework: it has no query planner, no
// classpath scanning, no scheduler, and no on-disk or wire format. It is
// intended to sit underneath a thin typed façade (see World.Compose,
// World.Select and Select1..Select6) that the host application provides.
package dominion
