package importer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathResolutionError reports a file whose location does not name a known
// budget and account.
type PathResolutionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PathResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PathResolutionError) Unwrap() error { return e.Err }

// ResolvePath maps <baseDir>/<budget>/<account>/.../<file> to its budget and
// account names.
func ResolvePath(baseDir, path string) (budget, account string, err error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", "", &PathResolutionError{Path: path, Reason: "bad base directory", Err: err}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", &PathResolutionError{Path: path, Reason: "bad path", Err: err}
	}

	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", &PathResolutionError{Path: path, Reason: "outside " + baseDir}
	}

	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 3 {
		return "", "", &PathResolutionError{Path: path, Reason: "expected <budget>/<account>/<file>"}
	}
	return parts[0], parts[1], nil
}
