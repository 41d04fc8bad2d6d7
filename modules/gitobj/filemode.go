package gitobj

// FileMode is a POSIX-like file mode as stored in a tree entry. Git only
// ever persists a small, fixed set of these.
type FileMode uint32

const (
	ModeFile       FileMode = 0o100644
	ModeExecutable FileMode = 0o100755
	ModeDir        FileMode = 0o040000
	ModeSymlink    FileMode = 0o120000
	ModeSubmodule  FileMode = 0o160000
)

// IsDir reports whether the mode identifies a subtree entry.
func (m FileMode) IsDir() bool {
	return m == ModeDir
}
