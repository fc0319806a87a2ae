package table

import (
	"bytes"
	"io"
	"os"
)

// IfChangedWriteFile buffers writes and only rewrites the file on Close when
// the content differs, leaving its mtime alone otherwise.
type IfChangedWriteFile struct {
	f               *os.File
	originalContent []byte
	buf             bytes.Buffer
}

var _ io.WriteCloser = &IfChangedWriteFile{}

func NewIfChangedWriteFile(path string) (*IfChangedWriteFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	originalContent, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &IfChangedWriteFile{
		f:               f,
		originalContent: originalContent,
	}, nil
}

func (wf *IfChangedWriteFile) Write(bs []byte) (int, error) {
	return wf.buf.Write(bs)
}

// Changed reports whether Close would rewrite the file.
func (wf *IfChangedWriteFile) Changed() bool {
	return !bytes.Equal(wf.originalContent, wf.buf.Bytes())
}

func (wf *IfChangedWriteFile) Close() error {
	if wf.Changed() {
		bs := wf.buf.Bytes()
		if _, err := wf.f.Seek(0, io.SeekStart); err != nil {
			wf.f.Close()
			return err
		}
		if _, err := wf.f.Write(bs); err != nil {
			wf.f.Close()
			return err
		}
		if err := wf.f.Truncate(int64(len(bs))); err != nil {
			wf.f.Close()
			return err
		}
	}

	if err := wf.f.Close(); err != nil {
		return err
	}
	return nil
}
