package real

import (
	"errors"
	"os"
	"path/filepath"
)

// File-system error taxonomy mirroring internal/fsmodel's, so process
// code written against one error set behaves the same way against
// either backend.
var (
	ErrFileNotFound      = errors.New("real: file not found")
	ErrFileAlreadyExists = errors.New("real: file already exists")
)

func (r *runtime) fsPath(name string) string {
	return filepath.Join(r.env.baseDir, r.self.Node, name)
}

// FsCreate creates an empty file named name under this process's
// node directory, via os.OpenFile(O_CREATE|O_EXCL) - the real
// counterpart of fsmodel.Manager.Create.
func (r *runtime) FsCreate(name string, onDone func(err error)) {
	go func() {
		f, err := os.OpenFile(r.fsPath(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if os.IsExist(err) {
				err = ErrFileAlreadyExists
			}
			call1(onDone, err)
			return
		}
		f.Close()
		call1(onDone, nil)
	}()
}

// FsOpen checks name exists, via os.Stat.
func (r *runtime) FsOpen(name string, onDone func(err error)) {
	go func() {
		if _, err := os.Stat(r.fsPath(name)); err != nil {
			if os.IsNotExist(err) {
				err = ErrFileNotFound
			}
			call1(onDone, err)
			return
		}
		call1(onDone, nil)
	}()
}

// FsRead reads up to length bytes at offset from name; reading past
// EOF returns fewer bytes than requested, never an error, matching
// fsmodel.Manager.Read's contract.
func (r *runtime) FsRead(name string, offset, length int, onDone func(data []byte, err error)) {
	go func() {
		f, err := os.Open(r.fsPath(name))
		if err != nil {
			if os.IsNotExist(err) {
				err = ErrFileNotFound
			}
			if onDone != nil {
				onDone(nil, err)
			}
			return
		}
		defer f.Close()
		buf := make([]byte, length)
		n, err := f.ReadAt(buf, int64(offset))
		if err != nil && n == 0 {
			if onDone != nil {
				onDone(nil, nil)
			}
			return
		}
		if onDone != nil {
			onDone(buf[:n], nil)
		}
	}()
}

// FsWrite writes data at offset into name, which must already exist
// (via FsCreate), matching fsmodel.Manager.Write's ErrFileNotFound
// behaviour for a never-created file.
func (r *runtime) FsWrite(name string, offset int, data []byte, onDone func(n int, err error)) {
	go func() {
		path := r.fsPath(name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				if onDone != nil {
					onDone(0, ErrFileNotFound)
				}
				return
			}
			if onDone != nil {
				onDone(0, err)
			}
			return
		}
		f, err := os.OpenFile(path, os.O_WRONLY, 0o644)
		if err != nil {
			if onDone != nil {
				onDone(0, err)
			}
			return
		}
		defer f.Close()
		n, err := f.WriteAt(data, int64(offset))
		if onDone != nil {
			onDone(n, err)
		}
	}()
}

// FsRemove deletes name.
func (r *runtime) FsRemove(name string, onDone func(err error)) {
	go func() {
		if err := os.Remove(r.fsPath(name)); err != nil {
			if os.IsNotExist(err) {
				err = ErrFileNotFound
			}
			call1(onDone, err)
			return
		}
		call1(onDone, nil)
	}()
}

func call1(onDone func(error), err error) {
	if onDone != nil {
		onDone(err)
	}
}
