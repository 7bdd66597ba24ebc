package backup

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/chmdznr/csync/pkg/models"
)

// writeArchive zips every mapped file that exists into w, each entry named
// by its logical name. Missing files are left out. It returns the number of
// entries written.
func writeArchive(fs afero.Fs, w io.Writer, mapping models.FileMapping) (int, error) {
	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(w)
	count := 0
	for _, name := range names {
		path := mapping[name]
		info, err := fs.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return count, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if err := addFile(fs, zw, name, path, info); err != nil {
			return count, err
		}
		count++
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("finish archive: %w", err)
	}
	return count, nil
}

func addFile(fs afero.Fs, zw *zip.Writer, name, path string, info os.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %s: %w", path, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s to archive: %w", name, err)
	}

	src, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s into archive: %w", path, err)
	}
	return nil
}
