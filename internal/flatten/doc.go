// Package flatten collapses single-child directory chains inside project
// directories.
//
// A project P converges while it holds exactly one visible entry and that
// entry is a directory D. Each level renames D to a unique temporary name,
// checks every entry for a name collision in P, moves the entries up, and
// removes the emptied temporary directory. Any collision or failed move
// undoes the level and restores D, so a project is never left half-flattened.
// A manifest of the original layout is written before the first level.
package flatten
