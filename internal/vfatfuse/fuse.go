// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package vfatfuse serves a *fat.Volume tree over bazil.org/fuse, mapping
// each Dir/File node onto a path resolved through the volume rather than
// through an in-memory entries map.
package vfatfuse

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/ostafen/gofatfs/pkg/fat"
)

// FS is the root of the mounted filesystem.
type FS struct {
	vol *fat.Volume
}

// New wraps vol for mounting.
func New(vol *fat.Volume) *FS {
	return &FS{vol: vol}
}

func (f *FS) Root() (fs.Node, error) {
	return &Node{fs: f, path: "/"}, nil
}

// Node represents both directories and files; which it is, is determined by
// looking up its DirEntry on demand rather than cached eagerly, since the
// volume is the single source of truth.
type Node struct {
	fs   *FS
	path string

	mu     sync.Mutex
	stream fat.ClusterStream
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case isErr(err, fat.ErrNotFound):
		return fuse.ENOENT
	case isErr(err, fat.ErrAlreadyExists):
		return fuse.EEXIST
	case isErr(err, fat.ErrNotDirectory):
		return syscall.ENOTDIR
	case isErr(err, fat.ErrIsDirectory):
		return syscall.EISDIR
	case isErr(err, fat.ErrReadOnly):
		return syscall.EROFS
	case isErr(err, fat.ErrNoSpace):
		return syscall.ENOSPC
	case isErr(err, fat.ErrInvalidName):
		return syscall.EINVAL
	default:
		return err
	}
}

func isErr(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func (n *Node) child(name string) *Node {
	return &Node{fs: n.fs, path: join(n.path, name)}
}

// Attr implements fs.Node.
func (n *Node) Attr(ctx context.Context, a *fuse.Attr) error {
	entry, err := n.fs.vol.Stat(n.path)
	if err != nil {
		return translateErr(err)
	}
	if entry.Attributes.IsDir() {
		a.Mode = os.ModeDir | 0755
	} else {
		a.Mode = 0644
		a.Size = uint64(entry.Size)
	}
	a.Mtime = entry.LastWriteTime
	a.Crtime = entry.CreationTime
	a.Atime = entry.LastAccessDate
	return nil
}

// Lookup implements fs.NodeStringLookuper.
func (n *Node) Lookup(ctx context.Context, name string) (fs.Node, error) {
	child := n.child(name)
	if _, err := n.fs.vol.Stat(child.path); err != nil {
		return nil, translateErr(err)
	}
	return child, nil
}

// ReadDirAll implements fs.HandleReadDirAller. It lists the directory's
// names through Volume.Readdirnames and calls Volume.Stat on each one to
// pick its dirent type; names whose Stat fails are left out.
func (n *Node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	names, err := n.fs.vol.Readdirnames(n.path)
	if err != nil {
		return nil, translateErr(err)
	}
	out := make([]fuse.Dirent, 0, len(names))
	for _, name := range names {
		entry, err := n.fs.vol.Stat(join(n.path, name))
		if err != nil {
			continue
		}
		typ := fuse.DT_File
		if entry.Attributes.IsDir() {
			typ = fuse.DT_Dir
		}
		out = append(out, fuse.Dirent{Name: name, Type: typ})
	}
	return out, nil
}

// Mkdir implements fs.NodeMkdirer.
func (n *Node) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	child := n.child(req.Name)
	if err := n.fs.vol.Mkdir(child.path); err != nil {
		return nil, translateErr(err)
	}
	return child, nil
}

// Remove implements fs.NodeRemover.
func (n *Node) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	return translateErr(n.fs.vol.Remove(join(n.path, req.Name)))
}

// Rename implements fs.NodeRenamer.
func (n *Node) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	dst, ok := newDir.(*Node)
	if !ok {
		return syscall.EXDEV
	}
	return translateErr(n.fs.vol.Rename(join(n.path, req.OldName), join(dst.path, req.NewName)))
}

// Create implements fs.NodeCreater.
func (n *Node) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	child := n.child(req.Name)
	_, stream, err := n.fs.vol.OpenFile(child.path, fat.ModeCreate)
	if err != nil {
		return nil, nil, translateErr(err)
	}
	child.stream = stream
	return child, child, nil
}

// Open implements fs.NodeOpener, reusing a single stream per node for the
// life of the file handle.
func (n *Node) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stream != nil {
		return n, nil
	}
	mode := fat.ModeOpen
	if req.Flags.IsWriteOnly() || req.Flags.IsReadWrite() {
		mode = fat.ModeOpenOrCreate
	}
	_, stream, err := n.fs.vol.OpenFile(n.path, mode)
	if err != nil {
		return nil, translateErr(err)
	}
	n.stream = stream
	return n, nil
}

// Read implements fs.HandleReader.
func (n *Node) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stream == nil {
		return syscall.EBADF
	}
	if _, err := n.stream.Seek(req.Offset, 0); err != nil {
		return err
	}
	buf := make([]byte, req.Size)
	read, err := n.stream.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	resp.Data = buf[:read]
	return nil
}

// Write implements fs.HandleWriter.
func (n *Node) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stream == nil {
		return syscall.EBADF
	}
	if _, err := n.stream.Seek(req.Offset, 0); err != nil {
		return err
	}
	written, err := n.stream.Write(req.Data)
	if err != nil {
		return translateErr(err)
	}
	resp.Size = written
	return nil
}

// Flush implements fs.HandleFlusher.
func (n *Node) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	return translateErr(n.fs.vol.Flush())
}

// Fsync implements fs.NodeFsyncer.
func (n *Node) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	return translateErr(n.fs.vol.Flush())
}

// Setattr implements fs.NodeSetattrer. Only a size change (truncate(2)) is
// applied; time and mode changes are accepted and ignored.
func (n *Node) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		if err := n.fs.vol.Truncate(n.path, uint32(req.Size)); err != nil {
			return translateErr(err)
		}
	}
	return nil
}
