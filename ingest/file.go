package ingest

import "os"

// localFile bundles an open file with its size, so LoadFile can hand
// Load an io.ReaderAt without a second stat call.
type localFile struct {
	file *os.File
	size int64
}

func openFile(path string) (*localFile, error) {
	f, err := os.Open(path) // #nosec G304 – path is caller-provided
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &localFile{file: f, size: info.Size()}, nil
}
