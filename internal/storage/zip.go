package storage

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/airmencoders/tron-common-api-sub001/pkg/logger"
)

// ObjectKeyEntry pairs a flat object-store key with the nested display
// path the entry should have inside an archive.
type ObjectKeyEntry struct {
	Key         string
	DisplayPath string
}

// skippedManifestName is the archive entry appended when one or more
// objects could not be streamed. A degraded archive is preferable to no
// archive, but the caller must be able to see what is missing.
const skippedManifestName = "__MISSING_FILES__.txt"

// WriteZip streams each object into w as a zip entry. A fetch failure
// skips that entry and continues; all skipped entries are listed in a
// trailing manifest. A write failure on w (client disconnect) aborts.
func WriteZip(ctx context.Context, fetch func(ctx context.Context, key string) (io.ReadCloser, error), entries []ObjectKeyEntry, w io.Writer) error {
	zw := zip.NewWriter(w)
	var skipped []ObjectKeyEntry

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return err
		}

		body, err := fetch(ctx, entry.Key)
		if err != nil {
			logger.Error("zip_entry_fetch_failed", err, map[string]interface{}{
				"object_key":   entry.Key,
				"display_path": entry.DisplayPath,
			})
			skipped = append(skipped, entry)
			continue
		}

		entryWriter, err := zw.Create(entry.DisplayPath)
		if err != nil {
			_ = body.Close()
			_ = zw.Close()
			return err
		}

		if _, err := io.Copy(entryWriter, body); err != nil {
			_ = body.Close()
			_ = zw.Close()
			return err
		}
		_ = body.Close()
	}

	if len(skipped) > 0 {
		manifest, err := zw.Create(skippedManifestName)
		if err != nil {
			_ = zw.Close()
			return err
		}
		var sb strings.Builder
		sb.WriteString("The following files could not be added to this archive:\n")
		for _, entry := range skipped {
			fmt.Fprintf(&sb, "%s\n", entry.DisplayPath)
		}
		if _, err := io.WriteString(manifest, sb.String()); err != nil {
			_ = zw.Close()
			return err
		}
	}

	return zw.Close()
}
