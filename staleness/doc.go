// Package staleness provides policies deciding when a reloadable snapshot
// has to be re-read from its backing content.
package staleness
