// Package script turns step definitions from a configuration document into
// callable handlers.
//
// Inline handler source is written in Lua. Before anything runs, the
// Validator inspects the parsed syntax tree (never the raw text, never by
// substring matching) and rejects source that imports code, references a
// denied capability name, defines more or less than one top-level function,
// or declares the wrong signature. Accepted source is compiled once and
// each invocation executes in a fresh interpreter state with only
// pure-computation libraries opened.
//
// A step value may instead be a dotted reference ("greetings.welcome"),
// which resolves against a Catalog of handlers the host registered in code.
// References bypass validation: they name functions already inside the
// host's trust boundary.
package script
