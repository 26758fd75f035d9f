package lib

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeSession is an in-memory remote store recording every call it receives,
// in order.
type fakeSession struct {
	dirs       map[string]bool
	files      map[string]*bytes.Buffer
	calls      []string
	statErrs   map[string]error
	mkdirErrs  map[string]error
	createErrs map[string]error
	wd         string
	closed     bool
}

func newFakeSession(existingDirs ...string) *fakeSession {
	s := &fakeSession{
		dirs:       map[string]bool{"/": true},
		files:      map[string]*bytes.Buffer{},
		statErrs:   map[string]error{},
		mkdirErrs:  map[string]error{},
		createErrs: map[string]error{},
		wd:         "/",
	}
	for _, d := range existingDirs {
		s.dirs[d] = true
	}
	return s
}

func (s *fakeSession) mkdirCalls() []string {
	var mkdirs []string
	for _, c := range s.calls {
		if len(c) > 6 && c[:6] == "mkdir:" {
			mkdirs = append(mkdirs, c[6:])
		}
	}
	return mkdirs
}

func (s *fakeSession) callIndex(call string) int {
	for i, c := range s.calls {
		if c == call {
			return i
		}
	}
	return -1
}

func (s *fakeSession) Stat(p string) (os.FileInfo, error) {
	s.calls = append(s.calls, "stat:"+p)
	if err := s.statErrs[p]; err != nil {
		return nil, err
	}
	if s.dirs[p] {
		return fakeFileInfo{name: path.Base(p), dir: true}, nil
	}
	if _, ok := s.files[p]; ok {
		return fakeFileInfo{name: path.Base(p)}, nil
	}
	return nil, os.ErrNotExist
}

func (s *fakeSession) Mkdir(p string) error {
	s.calls = append(s.calls, "mkdir:"+p)
	if err := s.mkdirErrs[p]; err != nil {
		return err
	}
	s.dirs[p] = true
	return nil
}

func (s *fakeSession) Create(p string) (io.WriteCloser, error) {
	s.calls = append(s.calls, "create:"+p)
	if err := s.createErrs[p]; err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	s.files[p] = buf
	return nopWriteCloser{buf}, nil
}

func (s *fakeSession) Getwd() (string, error) { return s.wd, nil }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type fakeFileInfo struct {
	name string
	dir  bool
}

func (f fakeFileInfo) Name() string { return f.name }
func (f fakeFileInfo) Size() int64  { return 0 }
func (f fakeFileInfo) Mode() os.FileMode {
	if f.dir {
		return os.ModeDir | 0755
	}
	return 0644
}
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.dir }
func (f fakeFileInfo) Sys() interface{}   { return nil }

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(os.ErrNotExist))
	assert.False(t, IsFatal(errors.New("permission denied")))
	assert.True(t, IsFatal(io.EOF))
	assert.True(t, IsFatal(errors.New("sftp: connection lost")))
	assert.True(t, IsFatal(errors.New("write tcp: use of closed network connection")))
}
