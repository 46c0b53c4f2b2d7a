package ccmenv

// Default configuration values for NewCluster. These constants are
// exported so callers can reference the defaults when building custom
// configurations relative to them (e.g., 2 * DefaultSMP).
const (
	// DefaultBinary is the binary name used to locate the external
	// tool in PATH.
	DefaultBinary = "ccm"

	// DefaultSMP is the per-node core count hint.
	DefaultSMP = 1

	// DefaultMemoryMB is the per-node memory hint in megabytes,
	// matching 512 MB per core at the default SMP.
	DefaultMemoryMB = 512

	// DefaultInstallDirName is the directory name under the system
	// temp directory where cluster state is stored. The full path is
	// computed as filepath.Join(os.TempDir(), DefaultInstallDirName).
	DefaultInstallDirName = "ccmenv"
)
