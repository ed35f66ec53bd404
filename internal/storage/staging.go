package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"go-user-auth/internal/util"
	"go-user-auth/pkg/apierror"
)

// Staging is the local area where multipart uploads wait before being pushed
// to the media service.
type Staging struct {
	rootAbs string
}

func New(root string) (*Staging, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("staging root cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve staging root: %w", err)
	}

	if err := os.MkdirAll(rootAbs, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}

	return &Staging{rootAbs: rootAbs}, nil
}

func (s *Staging) RootAbs() string {
	return s.rootAbs
}

// Save copies src into a new uniquely named file and returns its absolute path.
// A partially written file is removed before an error is returned.
func (s *Staging) Save(originalName string, src io.Reader) (string, error) {
	name := uuid.NewString() + "-" + util.SanitizeUploadName(originalName)
	path := filepath.Join(s.rootAbs, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}

	if _, err := io.Copy(file, src); err != nil {
		file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close staged file: %w", err)
	}

	return path, nil
}

// Remove deletes a staged file. Missing files are not an error, so it can run
// after the media uploader already cleaned up.
func (s *Staging) Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	resolved, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve staged path: %w", err)
	}

	if !isWithinRoot(s.rootAbs, resolved) || resolved == s.rootAbs {
		return apierror.New("PATH_TRAVERSAL", "path is outside the staging area", path, http.StatusForbidden)
	}

	if err := os.Remove(resolved); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}

	return nil
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if candidateAbs == rootAbs {
		return true
	}

	rootWithSeparator := rootAbs + string(filepath.Separator)
	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}
