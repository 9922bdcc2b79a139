package verdb

import "github.com/vdbio/verdb/errs"

// These are aliases onto errs so that a host importing only the root
// package can type-switch on verdb.InputError etc. without a second import;
// errs itself stays import-cycle-free for commit, poll, and query to use
// directly.
type (
	InputError           = errs.InputError
	StorageError         = errs.StorageError
	CorruptionError      = errs.CorruptionError
	VersionMismatchError = errs.VersionMismatchError
)
