package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFile is the name of the project configuration file.
const ConfigFile = ".livelist.yaml"

// FindRoot looks upwards from startDir for a directory holding a
// configuration file or a .git directory and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ConfigFile) || hasFile(dir, ".git") {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no %s or .git found above %s", ConfigFile, abs)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
