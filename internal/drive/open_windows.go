//go:build windows

package drive

// Open opens the platform device path (e.g. `\\.\D:`) as a Handle.
func Open(path string) (Handle, error) {
	return OpenWindows(path)
}
