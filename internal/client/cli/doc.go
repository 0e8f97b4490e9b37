// Package cli implements the interactive gophnotes client: a line-oriented
// REPL over the local collection and its remotes.
//
// Items are addressed by id or by any unique id prefix; "." stands for the
// current notebook and "root" for the top of the tree. Sync commands take
// an optional remote name or id and default to the primary remote.
package cli
