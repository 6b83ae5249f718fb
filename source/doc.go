// Package source provides reloadable.Source implementations and adapters
// for backing contents other than a plain file path.
package source
