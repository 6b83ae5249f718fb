// Package reloadable provides in-memory containers whose contents are periodically
// re-read from a backing file.
//
// A container is used like the collection it wraps. Every access first checks whether
// the snapshot is stale and, if so, reloads it synchronously; there is no background
// timer or file watcher.
//
//	lines, err := reloadable.NewList("/etc/myapp/allowlist.txt", reloadable.WithReloadInterval(time.Minute))
//	if err != nil {
//	    return err
//	}
//	ok, err := lines.Contains(user)
//
// Reload rules:
//
//   - The reload time is recorded before the content is read.
//   - A missing file resets the container to empty. It is not an error.
//   - Any other open, read or parse error is returned from the access that triggered
//     the reload, and the previous snapshot is kept.
//   - A successful reload replaces the snapshot as a whole; it never merges.
//
// List holds non-blank trimmed lines. Record holds an insertion-ordered key-value
// mapping decoded from a JSON (default) or YAML object. Other shapes can be built
// with New and a custom Parser.
//
// Containers are not safe for concurrent use.
package reloadable
