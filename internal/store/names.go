package store

import "fmt"

// StripeName returns the deterministic object name backing stripe index of
// inode. Index 0 is the base object (bare inode name); higher indices are
// suffixed, matching the scheme spec.md §6 describes for RADOS
// (inode//index). NATS object keys may not contain '/', so '.' is used as
// the separator instead; the bijection property is what matters, not the
// exact delimiter.
func StripeName(inode string, index uint64) string {
	if index == 0 {
		return inode
	}
	return fmt.Sprintf("%s.%016x", inode, index)
}
