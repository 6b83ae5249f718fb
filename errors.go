package reloadable

import "errors"

var (
	ErrNegativeInterval = errors.New("reload interval must not be negative")
	ErrTooLarge         = errors.New("backing content exceeds the size limit")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrKeyNotFound      = errors.New("key not found")
	ErrNotObject        = errors.New("document root is not an object")
	ErrInvalidUTF8      = errors.New("content is not valid UTF-8")
	ErrParserPanicked   = errors.New("parser panicked")
)
