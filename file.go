// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"
	"errors"
	"io"
)

// File is an open SFTP file or directory. The embedded Stream reads and
// writes at the current offset.
type File struct {
	*Stream
	a *Adapter
	f EngineFile
}

func newFile(a *Adapter, f EngineFile) *File {
	return &File{
		Stream: newStream(a, "sftp_file", f.Read, f.Write, nil),
		a:      a,
		f:      f,
	}
}

// Seek moves the offset of the next read or write. It does no I/O.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.f.Seek(offset, whence)
}

func (f *File) Stat(ctx context.Context) (FileStat, error) {
	return Await(ctx, f.a, "sftp_fstat", f.f.Stat)
}

func (f *File) Setstat(ctx context.Context, stat FileStat) error {
	return do(ctx, f.a, "sftp_fsetstat", func() error { return f.f.Setstat(stat) })
}

// Readdir returns the next entry of a directory handle, or io.EOF after
// the last one.
func (f *File) Readdir(ctx context.Context) (string, FileStat, error) {
	type entry struct {
		name string
		stat FileStat
	}
	e, err := Await(ctx, f.a, "sftp_readdir", func() (entry, error) {
		name, stat, err := f.f.Readdir()
		return entry{name, stat}, err
	})
	return e.name, e.stat, err
}

// Fsync flushes the file to stable storage on the server.
func (f *File) Fsync(ctx context.Context) error {
	return do(ctx, f.a, "sftp_fsync", f.f.Fsync)
}

// Statvfs returns information about the file system holding the file.
func (f *File) Statvfs(ctx context.Context) (Statvfs, error) {
	return Await(ctx, f.a, "sftp_fstatvfs", f.f.Statvfs)
}

// CloseContext releases the handle.
func (f *File) CloseContext(ctx context.Context) error {
	f.Stream.Cancel()
	return do(ctx, f.a, "sftp_close", f.f.Close)
}

// Close implements io.Closer.
func (f *File) Close() error {
	return f.CloseContext(context.Background())
}

var (
	_ io.ReadWriteCloser = (*File)(nil)
	_ io.Seeker          = (*File)(nil)
)

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
