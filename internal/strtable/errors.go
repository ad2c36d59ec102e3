package strtable

import "errors"

// ErrStringtableOverflow is returned by Intern/Push once the raw byte table
// would grow past its 40-bit addressable size.
var ErrStringtableOverflow = errors.New("strtable: stringtable overflow, exceeds 2^40-1 bytes")
