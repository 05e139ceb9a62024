//go:build linux

package drive

// Open opens the platform device path (e.g. "/dev/sg1") as a Handle.
func Open(path string) (Handle, error) {
	return OpenUnix(path)
}
