package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// File is one entry of an archive.
type File struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// Write streams files into a zip archive on w. Entries are stored without
// compression since PNG, JPEG and WebP payloads are already compressed.
func Write(w io.Writer, files []File) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		header := &zip.FileHeader{Name: f.Name, Method: zip.Store, Modified: f.Modified}
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", f.Name, err)
		}
		if _, err := entry.Write(f.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}
