// Package filesystem provides common utility functions for file system
// operations on source trees and build output directories.
package filesystem

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsFile reports whether path exists and is a regular file.
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// DefaultIgnorePatterns contains directories and files never copied into a
// scratch workspace.
var DefaultIgnorePatterns = []string{
	".git/",
	".repo/",
	"out/",
	"__pycache__/",
	"*.pyc",
	".DS_Store",
}

// RemovePath deletes path and everything below it. A missing path is not an error.
func RemovePath(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// MakeDirs creates path. With reset set, an existing directory is removed
// first so the result is always empty.
func MakeDirs(path string, reset bool) error {
	if reset {
		if err := RemovePath(path); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("%s makedirs failed: %w", path, err)
	}
	return nil
}

// CopyTree copies the directory src to dst, skipping anything matched by
// ignorePatterns (gitignore syntax, relative to src). A .gitignore at the
// top of src is honoured as well.
func CopyTree(src, dst string, ignorePatterns []string) error {
	patterns := append([]string{}, ignorePatterns...)
	if content, err := os.ReadFile(filepath.Join(src, ".gitignore")); err == nil {
		patterns = append(patterns, strings.Split(string(content), "\n")...)
	}
	matcher := ignore.CompileIgnoreLines(patterns...)

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if rel != "." {
			pathToMatch := rel
			if d.IsDir() {
				pathToMatch = rel + string(filepath.Separator)
			}
			if matcher.MatchesPath(pathToMatch) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyFile copies src to dst, creating dst's directory.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return copyFile(src, dst, 0644)
}
