// Package git clones repositories that carry a pre-built cloud assembly.
package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// CloneRepository shallow-clones repoURL and returns the checkout path. An
// empty destDir clones under a fresh temp directory.
func CloneRepository(repoURL, destDir string, log *zap.Logger) (string, error) {
	if destDir == "" {
		tmpDir, err := os.MkdirTemp("", "cdk-changeset-reporter-*")
		if err != nil {
			return "", fmt.Errorf("failed to create temp directory: %w", err)
		}
		destDir = tmpDir
	}
	clonePath := filepath.Join(destDir, repoName(repoURL))

	log.Info("cloning repository", zap.String("url", repoURL), zap.String("path", clonePath))

	// Progress goes to stderr: stdout is reserved for the report.
	_, err := gogit.PlainClone(clonePath, false, &gogit.CloneOptions{
		URL:      repoURL,
		Progress: os.Stderr,
		Depth:    1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to clone repository: %w", err)
	}
	return clonePath, nil
}

// CleanupRepository removes a checkout created by CloneRepository.
func CleanupRepository(path string) error {
	return os.RemoveAll(path)
}

func repoName(repoURL string) string {
	return strings.TrimSuffix(filepath.Base(repoURL), ".git")
}
