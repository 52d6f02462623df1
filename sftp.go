// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package assh

import (
	"context"
	"path"
)

// Sftp is an SFTP subsystem borrowed from its session.
type Sftp struct {
	a *Adapter
	s EngineSftp
}

// OpenMode opens path with explicit flags, creation mode and handle type.
func (s *Sftp) OpenMode(ctx context.Context, name string, flags OpenFlags, mode int, openType OpenType) (*File, error) {
	f, err := Await(ctx, s.a, "sftp_open", func() (EngineFile, error) {
		return s.s.OpenMode(name, flags, mode, openType)
	})
	if err != nil {
		return nil, err
	}
	return newFile(s.a, f), nil
}

// Open opens name for reading.
func (s *Sftp) Open(ctx context.Context, name string) (*File, error) {
	return s.OpenMode(ctx, name, OpenRead, 0, OpenTypeFile)
}

// Create creates or truncates name for writing with mode 0644.
func (s *Sftp) Create(ctx context.Context, name string) (*File, error) {
	return s.OpenMode(ctx, name, OpenWrite|OpenCreate|OpenTruncate, 0o644, OpenTypeFile)
}

// Opendir opens name for directory listing.
func (s *Sftp) Opendir(ctx context.Context, name string) (*File, error) {
	return s.OpenMode(ctx, name, OpenRead, 0, OpenTypeDir)
}

// Readdir lists dirname. The entries "." and ".." are omitted and each path
// is joined with dirname.
func (s *Sftp) Readdir(ctx context.Context, dirname string) ([]DirEntry, error) {
	dir, err := s.Opendir(ctx, dirname)
	if err != nil {
		return nil, err
	}
	var entries []DirEntry
	for {
		name, stat, err := dir.Readdir(ctx)
		if err != nil {
			if isEOF(err) {
				break
			}
			dir.CloseContext(ctx)
			return nil, err
		}
		if name == "." || name == ".." {
			continue
		}
		entries = append(entries, DirEntry{Path: path.Join(dirname, name), Stat: stat})
	}
	if err := dir.CloseContext(ctx); err != nil {
		return entries, err
	}
	return entries, nil
}

func (s *Sftp) Mkdir(ctx context.Context, name string, mode int) error {
	return do(ctx, s.a, "sftp_mkdir", func() error { return s.s.Mkdir(name, mode) })
}

func (s *Sftp) Rmdir(ctx context.Context, name string) error {
	return do(ctx, s.a, "sftp_rmdir", func() error { return s.s.Rmdir(name) })
}

// Stat follows symbolic links.
func (s *Sftp) Stat(ctx context.Context, name string) (FileStat, error) {
	return Await(ctx, s.a, "sftp_stat", func() (FileStat, error) { return s.s.Stat(name) })
}

// Lstat does not follow symbolic links.
func (s *Sftp) Lstat(ctx context.Context, name string) (FileStat, error) {
	return Await(ctx, s.a, "sftp_lstat", func() (FileStat, error) { return s.s.Lstat(name) })
}

// Setstat applies the non-nil attributes of stat.
func (s *Sftp) Setstat(ctx context.Context, name string, stat FileStat) error {
	return do(ctx, s.a, "sftp_setstat", func() error { return s.s.Setstat(name, stat) })
}

// Symlink creates path as a link to target.
func (s *Sftp) Symlink(ctx context.Context, name, target string) error {
	return do(ctx, s.a, "sftp_symlink", func() error { return s.s.Symlink(name, target) })
}

func (s *Sftp) Readlink(ctx context.Context, name string) (string, error) {
	return Await(ctx, s.a, "sftp_readlink", func() (string, error) { return s.s.Readlink(name) })
}

func (s *Sftp) Realpath(ctx context.Context, name string) (string, error) {
	return Await(ctx, s.a, "sftp_realpath", func() (string, error) { return s.s.Realpath(name) })
}

// Rename moves src to dst. Zero flags mean every rename flag.
func (s *Sftp) Rename(ctx context.Context, src, dst string, flags RenameFlags) error {
	if flags == 0 {
		flags = RenameOverwrite | RenameAtomic | RenameNative
	}
	return do(ctx, s.a, "sftp_rename", func() error { return s.s.Rename(src, dst, flags) })
}

func (s *Sftp) Unlink(ctx context.Context, name string) error {
	return do(ctx, s.a, "sftp_unlink", func() error { return s.s.Unlink(name) })
}
