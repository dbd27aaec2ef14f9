package render

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
)

// ArchiveName is the download name of a job's zip archive.
func ArchiveName(jobID string) string {
	return jobID + "_split_audio.zip"
}

// WriteArchive writes a zip containing every output, stored under its file name.
func WriteArchive(w io.Writer, outputs []Output) error {
	zw := zip.NewWriter(w)
	for _, o := range outputs {
		if err := addFile(zw, o); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, o Output) error {
	f, err := os.Open(o.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", o.Filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", o.Filename, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("archive header %s: %w", o.Filename, err)
	}
	hdr.Name = o.Filename
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("archive entry %s: %w", o.Filename, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("archive copy %s: %w", o.Filename, err)
	}
	return nil
}
