package ewf

import "os"

// fileExists reports whether path can be stat'ed and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
