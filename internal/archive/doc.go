// Package archive discovers archive groups in an input tree.
//
// A group is one logical archive, possibly spread across several volume
// files. Each file name is matched against an ordered list of volume
// conventions (split .7z.001, .partN.rar, .zNN, .rNN, generic .001, then plain
// single-archive extensions); every rule yields a normalized group key and a
// volume index, so grouping reduces to a stable sort plus group-by. Continuation
// volumes are folded into their group and never surface on their own.
//
// The grouper does not validate sequence completeness: a set with a missing
// volume still forms a group and the engine decides whether it extracts.
package archive
