package organizer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lector/internal/fileutil"
	"lector/internal/logging"
	"lector/internal/queue"
	"lector/internal/services"
)

var titleCaser = cases.Title(language.Und)

// displayName normalizes queue metadata into a library folder name.
// Intake derives lowercase placeholders from filenames, so values with no
// capitals at all get title-cased; anything already mixed-case is kept the
// way the book's own metadata spelled it.
func displayName(value, fallback string) string {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		value = strings.Join(strings.Fields(fallback), " ")
	}
	if value != "" && value == strings.ToLower(value) {
		value = titleCaser.String(value)
	}
	return value
}

// libraryTarget resolves the destination path under the audiobook library
// root, allocating a numbered suffix when the title is already shelved and
// overwriting is disabled. Series metadata nests the book under its
// collection folder with a sortable index prefix.
func (o *Organizer) libraryTarget(root string, item *queue.Item) (string, error) {
	ext := filepath.Ext(item.ExportedFile)
	stem := strings.TrimSuffix(filepath.Base(item.ExportedFile), ext)

	var target string
	meta := queue.MetadataFromJSON(item.MetadataJSON, item.Title)
	if strings.TrimSpace(meta.SeriesTitle) != "" || strings.TrimSpace(meta.LibraryPath) != "" {
		name := meta.GetFilename()
		if name == "" || name == "untitled" {
			name = stem
		}
		target = filepath.Join(meta.GetLibraryPath(root, ""), name+ext)
	} else {
		author := fileutil.SanitizeFileName(displayName(item.Author, "Unknown Author"))
		if author == "" {
			author = "Unknown Author"
		}
		title := fileutil.SanitizeFileName(displayName(item.Title, stem))
		if title == "" {
			title = fmt.Sprintf("audiobook-%d", item.ID)
		}
		target = filepath.Join(root, author, title+ext)
	}
	if o.cfg.Library.OverwriteExisting {
		return target, nil
	}
	return uniqueLibraryPath(target)
}

// uniqueLibraryPath returns target, or the first "<name> (n)<ext>" variant
// that does not exist yet.
func uniqueLibraryPath(target string) (string, error) {
	const maxAttempts = 1000
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := target
		if attempt > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, attempt+1, ext)
		}
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted library filename slots for %s", target)
}

// libraryUnavailableErrors lists syscall errors that indicate the library
// filesystem is unreachable rather than the item being broken.
var libraryUnavailableErrors = []error{
	syscall.ENODEV,
	syscall.ENOTCONN,
	syscall.EHOSTDOWN,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EIO,
	syscall.ESTALE,
}

func isLibraryUnavailable(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range libraryUnavailableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// handleLibraryUnavailable routes the item to review instead of failing:
// the narration is good, only the shelf is missing.
func (o *Organizer) handleLibraryUnavailable(ctx context.Context, item *queue.Item, err error) error {
	logger := logging.WithContext(ctx, o.logger)
	logReviewDecision(logger, "review", "library_unavailable")
	logger.Warn("library unavailable; moving audiobook to review directory",
		logging.Error(err),
		logging.String(logging.FieldEventType, "library_unavailable"),
		logging.String(logging.FieldErrorHint, "check the library_dir mount"),
	)
	return o.finishReview(ctx, item, "Library unavailable")
}

// moveOrCopyFile renames a file, falling back to a verified copy plus
// delete for cross-device moves.
func moveOrCopyFile(logger *slog.Logger, source, target string) error {
	renameErr := os.Rename(source, target)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if copyErr := copyFile(source, target); copyErr != nil {
			return services.Wrap(
				services.ErrTransient,
				"organizing",
				"copy file",
				"Failed to copy audiobook into place",
				copyErr,
			)
		}
		if err := os.Remove(source); err != nil {
			logger.Warn("failed to remove source file after copy; duplicate remains in staging",
				logging.Error(err),
				logging.String(logging.FieldEventType, "source_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "delete the staging copy manually"),
			)
		}
		return nil
	}
	if isLibraryUnavailable(renameErr) {
		return renameErr
	}
	return services.Wrap(
		services.ErrTransient,
		"organizing",
		"move file",
		"Failed to move audiobook into place",
		renameErr,
	)
}

// copyFile copies src to dst, verifying size and content hash so silent
// corruption over flaky network mounts cannot slip into the library.
func copyFile(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// cleanupStaging reclaims the item's staging directory once its audiobook
// has left staging.
func (o *Organizer) cleanupStaging(ctx context.Context, item *queue.Item) {
	if item == nil || o.cfg == nil {
		return
	}
	base := strings.TrimSpace(o.cfg.Paths.StagingDir)
	if base == "" {
		return
	}
	root := strings.TrimSpace(item.StagingRoot(base))
	if root == "" {
		return
	}
	logger := logging.WithContext(ctx, o.logger)
	if err := os.RemoveAll(root); err != nil {
		logger.Warn("failed to clean staging directory; leftover files remain",
			logging.String("staging_root", root),
			logging.Error(err),
			logging.String(logging.FieldEventType, "staging_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
		)
		return
	}
	logger.Debug("cleaned staging directory", logging.String("staging_root", root))
}
