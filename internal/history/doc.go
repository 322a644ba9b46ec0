// Package history stores resolution run outcomes in a local SQLite
// database so past runs can be inspected after reports are archived.
package history
