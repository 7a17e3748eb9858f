package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// discoverRdFiles resolves paths (a mix of .Rd files and directories) to a
// sorted, deduplicated list of .Rd file paths. Directories are scanned one
// level deep unless recursive is set.
func discoverRdFiles(paths []string, recursive bool) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		if recursive {
			err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isRdFile(path) {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && isRdFile(e.Name()) {
				add(filepath.Join(p, e.Name()))
			}
		}
	}

	sort.Strings(out)
	return out, nil
}

func isRdFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".rd")
}

// stemOf returns the file name without its extension, used as both the
// alias-index key and the output file's base name.
func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
