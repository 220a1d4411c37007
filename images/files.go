package images

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// MaxFileSize is the largest screenshot accepted from disk (20MB)
	MaxFileSize = 20 * 1024 * 1024

	// MaxImages bounds the number of screenshots in one analysis
	MaxImages = 30
)

// SupportedExtensions lists the screenshot file extensions picked up from disk
var SupportedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".heic",
}

// Discover expands command-line sources into screenshot paths. Sources keep
// their argument order. Files found by scanning a directory or matching a glob
// are ordered naturally among themselves, so "shot_2.png" precedes
// "shot_10.png". A file named twice stays at its first position.
func Discover(sources []string) ([]string, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no image sources provided")
	}

	set := pathSet{seen: make(map[string]bool)}
	for _, source := range sources {
		expanded, err := expand(source)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", source, err)
		}
		for _, p := range expanded {
			if err := set.add(p); err != nil {
				return nil, err
			}
		}
	}

	if len(set.paths) == 0 {
		return nil, fmt.Errorf("no screenshots found")
	}
	return set.paths, nil
}

// pathSet collects absolute paths in insertion order
type pathSet struct {
	seen  map[string]bool
	paths []string
}

func (s *pathSet) add(p string) error {
	abs, err := filepath.Abs(p)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", p, err)
	}
	if !s.seen[abs] {
		s.seen[abs] = true
		s.paths = append(s.paths, abs)
	}
	return nil
}

// expand turns one source into paths. An existing file is returned as is;
// directories and glob matches come back naturally sorted.
func expand(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err == nil {
		if info.IsDir() {
			return listDir(source)
		}
		if !IsImageFile(source) {
			return nil, fmt.Errorf("not a supported image file: %s", source)
		}
		return []string{source}, nil
	}

	matches, globErr := filepath.Glob(source)
	if globErr != nil {
		return nil, fmt.Errorf("invalid pattern: %w", globErr)
	}
	if len(matches) == 0 {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no such file and no pattern matches")
		}
		return nil, err
	}

	var found []string
	for _, match := range matches {
		info, err := os.Stat(match)
		switch {
		case err != nil:
			continue
		case info.IsDir():
			if inDir, err := listDir(match); err == nil {
				found = append(found, inDir...)
			}
		case IsImageFile(match):
			found = append(found, match)
		}
	}
	sortNatural(found)
	return found, nil
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var found []string
	for _, entry := range entries {
		if !entry.IsDir() && IsImageFile(entry.Name()) {
			found = append(found, filepath.Join(dir, entry.Name()))
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no image files in directory")
	}

	sortNatural(found)
	return found, nil
}

// IsImageFile reports whether path has a supported screenshot extension
func IsImageFile(path string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

func sortNatural(paths []string) {
	slices.SortStableFunc(paths, func(a, b string) int {
		return compareNatural(filepath.Base(a), filepath.Base(b))
	})
}

// compareNatural orders names case-insensitively with digit runs compared by value
func compareNatural(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)

	for a != "" && b != "" {
		ca, restA := nextChunk(a)
		cb, restB := nextChunk(b)
		if c := compareChunk(ca, cb); c != 0 {
			return c
		}
		a, b = restA, restB
	}
	return len(a) - len(b)
}

// nextChunk splits off a leading run of digits or of non-digits
func nextChunk(s string) (chunk, rest string) {
	digits := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:]
}

func compareChunk(a, b string) int {
	if isDigit(a[0]) && isDigit(b[0]) {
		ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(ta) != len(tb) {
			return len(ta) - len(tb)
		}
		return strings.Compare(ta, tb)
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Validate checks that the set stays within MaxImages and that every path is
// an existing, supported file within MaxFileSize. All problems are reported.
func Validate(paths []string) error {
	if len(paths) > MaxImages {
		return fmt.Errorf("too many screenshots: %d (maximum %d)", len(paths), MaxImages)
	}

	var errs []error
	for i, path := range paths {
		if err := checkFile(path); err != nil {
			errs = append(errs, fmt.Errorf("image %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return fmt.Errorf("cannot access %s: %w", path, err)
	case info.IsDir():
		return fmt.Errorf("%s is a directory", path)
	case !IsImageFile(path):
		return fmt.Errorf("%s is not a supported image format", path)
	case info.Size() > MaxFileSize:
		return fmt.Errorf("%s is %s, over the %s limit", path, FormatSize(info.Size()), FormatSize(MaxFileSize))
	}
	return nil
}

// FormatSize formats a byte count as a human-readable string
func FormatSize(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d bytes", bytes)
	}
	size := float64(bytes) / 1024
	for _, unit := range []string{"KB", "MB"} {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f GB", size)
}
