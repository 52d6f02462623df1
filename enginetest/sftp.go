// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enginetest

import (
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"code.hybscloud.com/assh"
)

const (
	modeDir  = 0o040000
	modeFile = 0o100000
	modeLink = 0o120000
	maxLinks = 8

	vfsBlock  = 4096
	vfsBlocks = 1 << 20
	vfsFiles  = 1 << 16
)

type node struct {
	dir          bool
	link         string
	data         []byte
	perm         uint32
	uid, gid     uint32
	atime, mtime uint64
}

func (n *node) stat() assh.FileStat {
	size := uint64(len(n.data))
	perm := n.perm
	switch {
	case n.dir:
		perm |= modeDir
	case n.link != "":
		perm |= modeLink
		size = uint64(len(n.link))
	default:
		perm |= modeFile
	}
	uid, gid, atime, mtime := n.uid, n.gid, n.atime, n.mtime
	return assh.FileStat{Size: &size, UID: &uid, GID: &gid, Perm: &perm, Atime: &atime, Mtime: &mtime}
}

// FS is the in-memory filesystem behind the fake SFTP and SCP endpoints.
// Paths are absolute; relative paths resolve against "/".
type FS struct {
	mu    sync.Mutex
	nodes map[string]*node
}

// NewFS returns a filesystem holding only the root directory.
func NewFS() *FS {
	return &FS{nodes: map[string]*node{"/": {dir: true, perm: 0o755}}}
}

func clean(p string) string {
	return path.Clean("/" + p)
}

// resolve follows symbolic links of p. fs.mu must be held.
func (fs *FS) resolve(p string) (string, *node, error) {
	p = clean(p)
	for range maxLinks {
		n, ok := fs.nodes[p]
		if !ok {
			return p, nil, errorf(CodeSftpNoSuchFile, "%s", p)
		}
		if n.link == "" {
			return p, n, nil
		}
		target := n.link
		if !path.IsAbs(target) {
			target = path.Join(path.Dir(p), target)
		}
		p = clean(target)
	}
	return p, nil, errorf(CodeSftpFailure, "%s: too many links", p)
}

// parent returns the directory that would hold p. fs.mu must be held.
func (fs *FS) parent(p string) error {
	dir, ok := fs.nodes[path.Dir(p)]
	if !ok {
		return errorf(CodeSftpNoSuchFile, "%s", path.Dir(p))
	}
	if !dir.dir {
		return errorf(CodeSftpFailure, "%s: not a directory", path.Dir(p))
	}
	return nil
}

// MkdirAll creates p and any missing parents with mode 0755.
func (fs *FS) MkdirAll(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var missing []string
	for cur := clean(p); cur != "/"; cur = path.Dir(cur) {
		if _, ok := fs.nodes[cur]; ok {
			break
		}
		missing = append(missing, cur)
	}
	for _, cur := range missing {
		fs.nodes[cur] = &node{dir: true, perm: 0o755}
	}
}

// WriteFile creates or replaces the file at p. Missing parents are created.
func (fs *FS) WriteFile(p string, data []byte, perm uint32) error {
	p = clean(p)
	fs.MkdirAll(path.Dir(p))
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if n, ok := fs.nodes[p]; ok && n.dir {
		return errorf(CodeSftpFailure, "%s: is a directory", p)
	}
	fs.nodes[p] = &node{data: append([]byte(nil), data...), perm: perm & 0o777}
	return nil
}

// ReadFile returns the content and permission bits of the file at p.
func (fs *FS) ReadFile(p string) ([]byte, uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, n, err := fs.resolve(p)
	if err != nil {
		return nil, 0, err
	}
	if n.dir {
		return nil, 0, errorf(CodeSftpFailure, "%s: is a directory", p)
	}
	return append([]byte(nil), n.data...), n.perm | modeFile, nil
}

// Exists reports whether p names any node, without following links.
func (fs *FS) Exists(p string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.nodes[clean(p)]
	return ok
}

// list returns the sorted entries of dir, "." and ".." first. fs.mu must
// be held.
func (fs *FS) list(dir string) []dirent {
	var names []string
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	for p := range fs.nodes {
		if p == dir || !strings.HasPrefix(p, prefix) {
			continue
		}
		if rest := p[len(prefix):]; !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	entries := []dirent{
		{name: ".", stat: fs.nodes[dir].stat()},
		{name: "..", stat: fs.nodes[path.Dir(dir)].stat()},
	}
	for _, name := range names {
		entries = append(entries, dirent{name: name, stat: fs.nodes[path.Join(dir, name)].stat()})
	}
	return entries
}

type dirent struct {
	name string
	stat assh.FileStat
}

// Sftp is the fake SFTP subsystem over the engine's FS.
type Sftp struct {
	e *Engine
}

var _ assh.EngineSftp = (*Sftp)(nil)

func (s *Sftp) OpenMode(p string, flags assh.OpenFlags, mode int, openType assh.OpenType) (assh.EngineFile, error) {
	if err := s.e.enter("sftp_open"); err != nil {
		return nil, err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if openType == assh.OpenTypeDir {
		full, n, err := fs.resolve(p)
		if err != nil {
			return nil, err
		}
		if !n.dir {
			return nil, errorf(CodeSftpFailure, "%s: not a directory", p)
		}
		return &File{e: s.e, path: full, dir: true, entries: fs.list(full)}, nil
	}

	full, n, err := fs.resolve(p)
	switch {
	case err != nil && flags&assh.OpenCreate == 0:
		return nil, err
	case err != nil:
		if e, _ := err.(*Error); e == nil || e.Code != CodeSftpNoSuchFile {
			return nil, err
		}
		if perr := fs.parent(full); perr != nil {
			return nil, perr
		}
		n = &node{perm: uint32(mode) & 0o777}
		fs.nodes[full] = n
	case flags&(assh.OpenCreate|assh.OpenExclusive) == assh.OpenCreate|assh.OpenExclusive:
		return nil, errorf(CodeSftpFileAlreadyExists, "%s", p)
	case n.dir:
		return nil, errorf(CodeSftpFailure, "%s: is a directory", p)
	}
	if flags&assh.OpenTruncate != 0 {
		n.data = nil
	}
	return &File{e: s.e, path: full, n: n, flags: flags}, nil
}

func (s *Sftp) Mkdir(p string, mode int) error {
	if err := s.e.enter("sftp_mkdir"); err != nil {
		return err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p = clean(p)
	if _, ok := fs.nodes[p]; ok {
		return errorf(CodeSftpFileAlreadyExists, "%s", p)
	}
	if err := fs.parent(p); err != nil {
		return err
	}
	fs.nodes[p] = &node{dir: true, perm: uint32(mode) & 0o777}
	return nil
}

func (s *Sftp) Rmdir(p string) error {
	if err := s.e.enter("sftp_rmdir"); err != nil {
		return err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p = clean(p)
	n, ok := fs.nodes[p]
	if !ok {
		return errorf(CodeSftpNoSuchFile, "%s", p)
	}
	if !n.dir || p == "/" {
		return errorf(CodeSftpFailure, "%s: not a removable directory", p)
	}
	if len(fs.list(p)) > 2 {
		return errorf(CodeSftpDirNotEmpty, "%s", p)
	}
	delete(fs.nodes, p)
	return nil
}

func (s *Sftp) Stat(p string) (assh.FileStat, error) {
	if err := s.e.enter("sftp_stat"); err != nil {
		return assh.FileStat{}, err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, n, err := fs.resolve(p)
	if err != nil {
		return assh.FileStat{}, err
	}
	return n.stat(), nil
}

func (s *Sftp) Lstat(p string) (assh.FileStat, error) {
	if err := s.e.enter("sftp_lstat"); err != nil {
		return assh.FileStat{}, err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.nodes[clean(p)]
	if !ok {
		return assh.FileStat{}, errorf(CodeSftpNoSuchFile, "%s", p)
	}
	return n.stat(), nil
}

func (s *Sftp) Setstat(p string, stat assh.FileStat) error {
	if err := s.e.enter("sftp_setstat"); err != nil {
		return err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, n, err := fs.resolve(p)
	if err != nil {
		return err
	}
	n.setstat(stat)
	return nil
}

func (n *node) setstat(stat assh.FileStat) {
	if stat.Size != nil {
		size := int(*stat.Size)
		if size <= len(n.data) {
			n.data = n.data[:size]
		} else {
			n.data = append(n.data, make([]byte, size-len(n.data))...)
		}
	}
	if stat.UID != nil {
		n.uid = *stat.UID
	}
	if stat.GID != nil {
		n.gid = *stat.GID
	}
	if stat.Perm != nil {
		n.perm = *stat.Perm & 0o777
	}
	if stat.Atime != nil {
		n.atime = *stat.Atime
	}
	if stat.Mtime != nil {
		n.mtime = *stat.Mtime
	}
}

func (s *Sftp) Symlink(p, target string) error {
	if err := s.e.enter("sftp_symlink"); err != nil {
		return err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p = clean(p)
	if _, ok := fs.nodes[p]; ok {
		return errorf(CodeSftpFileAlreadyExists, "%s", p)
	}
	if err := fs.parent(p); err != nil {
		return err
	}
	fs.nodes[p] = &node{link: target, perm: 0o777}
	return nil
}

func (s *Sftp) Readlink(p string) (string, error) {
	if err := s.e.enter("sftp_readlink"); err != nil {
		return "", err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.nodes[clean(p)]
	if !ok {
		return "", errorf(CodeSftpNoSuchFile, "%s", p)
	}
	if n.link == "" {
		return "", errorf(CodeSftpFailure, "%s: not a link", p)
	}
	return n.link, nil
}

func (s *Sftp) Realpath(p string) (string, error) {
	if err := s.e.enter("sftp_realpath"); err != nil {
		return "", err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	full, _, err := fs.resolve(p)
	if err != nil {
		return "", err
	}
	return full, nil
}

// Rename moves src to dst. An existing dst is replaced only with
// RenameOverwrite.
func (s *Sftp) Rename(src, dst string, flags assh.RenameFlags) error {
	if err := s.e.enter("sftp_rename"); err != nil {
		return err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	src, dst = clean(src), clean(dst)
	n, ok := fs.nodes[src]
	if !ok {
		return errorf(CodeSftpNoSuchFile, "%s", src)
	}
	if old, exists := fs.nodes[dst]; exists {
		if flags&assh.RenameOverwrite == 0 || old.dir {
			return errorf(CodeSftpFileAlreadyExists, "%s", dst)
		}
	}
	if err := fs.parent(dst); err != nil {
		return err
	}
	prefix := src + "/"
	moved := make(map[string]*node)
	for p, c := range fs.nodes {
		if strings.HasPrefix(p, prefix) {
			moved[dst+"/"+p[len(prefix):]] = c
			delete(fs.nodes, p)
		}
	}
	for p, c := range moved {
		fs.nodes[p] = c
	}
	delete(fs.nodes, src)
	fs.nodes[dst] = n
	return nil
}

func (s *Sftp) Unlink(p string) error {
	if err := s.e.enter("sftp_unlink"); err != nil {
		return err
	}
	fs := s.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	p = clean(p)
	n, ok := fs.nodes[p]
	if !ok {
		return errorf(CodeSftpNoSuchFile, "%s", p)
	}
	if n.dir {
		return errorf(CodeSftpFailure, "%s: is a directory", p)
	}
	delete(fs.nodes, p)
	return nil
}

// File is an open fake SFTP handle.
type File struct {
	e       *Engine
	path    string
	n       *node
	flags   assh.OpenFlags
	off     int64
	dir     bool
	entries []dirent
	closed  bool
}

var _ assh.EngineFile = (*File)(nil)

func (f *File) check(op string) error {
	if err := f.e.enter(op); err != nil {
		return err
	}
	if f.closed {
		return errorf(CodeSftpFailure, "%s: handle closed", f.path)
	}
	return nil
}

func (f *File) Read(p []byte) (int, error) {
	if err := f.check("sftp_read"); err != nil {
		return 0, err
	}
	if f.dir {
		return 0, errorf(CodeSftpFailure, "%s: is a directory", f.path)
	}
	fs := f.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f.off >= int64(len(f.n.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.n.data[f.off:])
	f.off += int64(n)
	return n, nil
}

func (f *File) Write(p []byte) (int, error) {
	if err := f.check("sftp_write"); err != nil {
		return 0, err
	}
	if f.dir || f.flags&(assh.OpenWrite|assh.OpenAppend) == 0 {
		return 0, errorf(CodeSftpPermissionDenied, "%s: not open for writing", f.path)
	}
	fs := f.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f.flags&assh.OpenAppend != 0 {
		f.off = int64(len(f.n.data))
	}
	end := f.off + int64(len(p))
	if end > int64(len(f.n.data)) {
		f.n.data = append(f.n.data, make([]byte, end-int64(len(f.n.data)))...)
	}
	copy(f.n.data[f.off:], p)
	f.off = end
	return len(p), nil
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.off
	case io.SeekEnd:
		f.e.fs.mu.Lock()
		if f.n != nil {
			base = int64(len(f.n.data))
		}
		f.e.fs.mu.Unlock()
	default:
		return 0, errorf(CodeInval, "whence %d", whence)
	}
	if base+offset < 0 {
		return 0, errorf(CodeInval, "negative offset")
	}
	f.off = base + offset
	return f.off, nil
}

func (f *File) Stat() (assh.FileStat, error) {
	if err := f.check("sftp_fstat"); err != nil {
		return assh.FileStat{}, err
	}
	fs := f.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f.dir {
		return fs.nodes[f.path].stat(), nil
	}
	return f.n.stat(), nil
}

func (f *File) Setstat(stat assh.FileStat) error {
	if err := f.check("sftp_fsetstat"); err != nil {
		return err
	}
	fs := f.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f.dir {
		fs.nodes[f.path].setstat(stat)
		return nil
	}
	f.n.setstat(stat)
	return nil
}

func (f *File) Readdir() (string, assh.FileStat, error) {
	if err := f.check("sftp_readdir"); err != nil {
		return "", assh.FileStat{}, err
	}
	if !f.dir {
		return "", assh.FileStat{}, errorf(CodeSftpFailure, "%s: not a directory", f.path)
	}
	if int(f.off) >= len(f.entries) {
		return "", assh.FileStat{}, io.EOF
	}
	d := f.entries[f.off]
	f.off++
	return d.name, d.stat, nil
}

func (f *File) Fsync() error {
	return f.check("sftp_fsync")
}

// Statvfs reports a fixed-size volume whose usage tracks the FS content.
func (f *File) Statvfs() (assh.Statvfs, error) {
	if err := f.check("sftp_fstatvfs"); err != nil {
		return assh.Statvfs{}, err
	}
	fs := f.e.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var used uint64
	for _, n := range fs.nodes {
		used += (uint64(len(n.data)) + vfsBlock - 1) / vfsBlock
	}
	free := vfsBlocks - used
	inodes := vfsFiles - uint64(len(fs.nodes))
	return assh.Statvfs{
		Bsize:   vfsBlock,
		Frsize:  vfsBlock,
		Blocks:  vfsBlocks,
		Bfree:   free,
		Bavail:  free,
		Files:   vfsFiles,
		Ffree:   inodes,
		Favail:  inodes,
		Namemax: 255,
	}, nil
}

func (f *File) Close() error {
	if err := f.check("sftp_close"); err != nil {
		return err
	}
	f.closed = true
	return nil
}
