package utils

import (
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

//InSlice returns true if given string appears in given slice
func InSlice(lookingFor string, slice []string) bool {
	for _, s := range slice {
		if s == lookingFor {
			return true
		}
	}

	return false
}

//ListDir returns a list of files/ directories in given path
func ListDir(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, errors.Wrap(err, "ListDir")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names, nil
}

//BaseName strips the extension of a file name: "match.mp4" -> "match"
func BaseName(name string) string {
	name = path.Base(name)
	return strings.TrimSuffix(name, path.Ext(name))
}

//EnsureDirs creates root and then every directory in dirs that does not exist yet. Directories are created in
//path order so nested ones come after their parents.
func EnsureDirs(root string, dirs map[string]interface{}) error {
	paths := make([]string, 0, len(dirs)+1)
	if root != "" {
		paths = append(paths, root)
	}

	rest := make([]string, 0, len(dirs))
	for key, dir := range dirs {
		dirPath, ok := dir.(string)
		if !ok || dirPath == "" {
			return errors.Errorf("EnsureDirs: directory.%s is not a path", key)
		}
		if dirPath != root {
			rest = append(rest, dirPath)
		}
	}
	sort.Strings(rest)
	paths = append(paths, rest...)

	for _, dirPath := range paths {
		if err := os.MkdirAll(dirPath, 0766); err != nil {
			return errors.Wrapf(err, "EnsureDirs: could not create '%s'", dirPath)
		}
	}

	return nil
}

//MissingKeys returns the keys of required whose value get reports as empty
func MissingKeys(required []string, get func(string) string) []string {
	missing := make([]string, 0)
	for _, key := range required {
		if get(key) == "" {
			missing = append(missing, key)
		}
	}

	return missing
}
