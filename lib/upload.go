package lib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheggaaa/pb"
	"go.uber.org/zap"
)

// Request describes one upload operation: what local material to send and how
// to lay it out under the remote base directory.
type Request interface {
	isRequest()
}

// FileRequest uploads a single local file under the remote base directory.
type FileRequest struct {
	Path string
}

// TreeRequest uploads a whole local directory under the remote base
// directory, keeping its structure. The name of the directory itself becomes
// a new remote directory under the base.
type TreeRequest struct {
	Path string
}

// ListRequest uploads an explicit list of local files, keeping their
// structure relative to Base. When Base is empty, the deepest common parent
// directory of the files is used.
type ListRequest struct {
	Paths []string
	Base  string
}

func (r FileRequest) isRequest() {}
func (r TreeRequest) isRequest() {}
func (r ListRequest) isRequest() {}

// MakeRequest builds the upload request matching a user selection: a single
// directory, a single regular file, or several paths that are uploaded
// relative to their common parent.
func MakeRequest(paths []string) (Request, error) {
	if len(paths) == 0 {
		return nil, errors.New("no local path selected")
	}
	abspaths := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		abspaths = append(abspaths, a)
	}
	if len(abspaths) > 1 {
		return ListRequest{Paths: abspaths}, nil
	}
	infos, err := os.Stat(abspaths[0])
	if err != nil {
		return nil, err
	}
	if infos.IsDir() {
		return TreeRequest{Path: abspaths[0]}, nil
	}
	if !infos.Mode().IsRegular() {
		return nil, fmt.Errorf("is not a regular file: %s", abspaths[0])
	}
	return FileRequest{Path: abspaths[0]}, nil
}

// CommonBase returns the deepest directory containing all the given absolute
// paths. When the paths do not share a root (eg. different drives on
// Windows), the parent of the first path is returned.
func CommonBase(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	sep := string(filepath.Separator)
	base := filepath.Dir(paths[0])
	for _, p := range paths[1:] {
		dir := filepath.Dir(p)
		if filepath.VolumeName(dir) != filepath.VolumeName(base) {
			return filepath.Dir(paths[0])
		}
		for base != dir && !strings.HasPrefix(dir+sep, base+sep) {
			parent := filepath.Dir(base)
			if parent == base {
				break
			}
			base = parent
		}
	}
	return base
}

// ReportFunc receives one human-readable status line per completed or failed
// transfer.
type ReportFunc func(format string, args ...interface{})

// Uploader sends local files to a remote SFTP session, creating the remote
// directories they need on the way. Transfers are sequential; a failed file
// is reported and does not stop the batch, only connection-level errors do.
type Uploader struct {
	session     Session
	ensurer     *Ensurer
	logger      *zap.SugaredLogger
	info        ReportFunc
	err         ReportFunc
	progress    bool
	warnSkipped bool

	uploaded int
	failed   int
	skipped  int
}

func NewUploader(session Session, logger *zap.SugaredLogger) *Uploader {
	u := &Uploader{
		session: session,
		ensurer: NewEnsurer(session, logger),
		logger:  logger,
	}
	u.info = func(format string, args ...interface{}) { logger.Infof(format, args...) }
	u.err = func(format string, args ...interface{}) { logger.Errorf(format, args...) }
	return u
}

// WithReporter directs per-file status lines to the given sinks instead of
// the logger.
func (u *Uploader) WithReporter(info, errf ReportFunc) *Uploader {
	if info != nil {
		u.info = info
	}
	if errf != nil {
		u.err = errf
	}
	return u
}

// WithProgress shows a progress bar while each file is transferred.
func (u *Uploader) WithProgress(enabled bool) *Uploader {
	u.progress = enabled
	return u
}

// WarnSkipped reports list entries that are skipped because they do not exist
// or are not regular files, instead of ignoring them silently.
func (u *Uploader) WarnSkipped(enabled bool) *Uploader {
	u.warnSkipped = enabled
	return u
}

// EnsureBase pre-creates the remote base directory. Ensuring the root or an
// empty base is a no-op.
func (u *Uploader) EnsureBase(base RemotePath) error {
	return u.ensurer.Ensure(base)
}

// Do executes the request, placing every file under remoteBase. Invalid local
// input and connection-level failures are returned as errors; individual file
// failures are reported, counted, and returned once as an aggregate.
func (u *Uploader) Do(req Request, remoteBase RemotePath) error {
	u.uploaded, u.failed, u.skipped = 0, 0, 0
	var err error
	switch r := req.(type) {
	case FileRequest:
		err = u.doFile(r, remoteBase)
	case TreeRequest:
		err = u.doTree(r, remoteBase)
	case ListRequest:
		err = u.doList(r, remoteBase)
	default:
		return fmt.Errorf("unknown request type: %T", req)
	}
	u.logger.Infow("upload finished", "uploaded", u.uploaded, "failed", u.failed, "skipped", u.skipped)
	if err != nil {
		return err
	}
	if u.failed > 0 {
		return fmt.Errorf("%d file(s) failed to upload", u.failed)
	}
	return nil
}

func (u *Uploader) doFile(r FileRequest, base RemotePath) error {
	infos, err := os.Stat(r.Path)
	if err != nil {
		return err
	}
	if !infos.Mode().IsRegular() {
		return fmt.Errorf("is not a regular file: %s", r.Path)
	}
	dest := JoinRemote(string(base), filepath.Base(r.Path))
	if err := u.ensurer.Ensure(dest.Dir()); err != nil {
		return err
	}
	return u.transfer(r.Path, dest)
}

func (u *Uploader) doTree(r TreeRequest, base RemotePath) error {
	infos, err := os.Stat(r.Path)
	if err != nil {
		return err
	}
	if !infos.IsDir() {
		return fmt.Errorf("is not a directory: %s", r.Path)
	}
	remoteRoot := JoinRemote(string(base), filepath.Base(r.Path))
	if err := u.ensurer.Ensure(remoteRoot); err != nil {
		return err
	}
	return WalkLocal(r.Path, func(path, rel string, isdir bool) error {
		if rel == "." {
			return nil
		}
		dest := JoinRemote(string(remoteRoot), rel)
		if isdir {
			return u.ensurer.Ensure(dest)
		}
		return u.transfer(path, dest)
	}, u.logger)
}

func (u *Uploader) doList(r ListRequest, base RemotePath) error {
	if len(r.Paths) == 0 {
		return nil
	}
	files := make([]string, 0, len(r.Paths))
	for _, p := range r.Paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files = append(files, a)
	}
	baseDir := r.Base
	if baseDir == "" {
		baseDir = CommonBase(files)
	}
	baseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return err
	}
	for _, localFile := range files {
		infos, err := os.Stat(localFile)
		if err != nil || !infos.Mode().IsRegular() {
			u.skipped++
			if u.warnSkipped {
				u.err("skipped: %s is not an existing regular file", localFile)
			} else {
				u.logger.Debugw("skipping list entry", "path", localFile)
			}
			continue
		}
		rel, err := filepath.Rel(baseDir, localFile)
		if err != nil {
			// different volume than the base: flatten
			rel = filepath.Base(localFile)
		}
		dest := JoinRemote(string(base), filepath.ToSlash(rel))
		if err := u.ensurer.Ensure(dest.Dir()); err != nil {
			return err
		}
		if err := u.transfer(localFile, dest); err != nil {
			return err
		}
	}
	return nil
}

// transfer uploads one file and accounts for the outcome. It only returns
// connection-level errors.
func (u *Uploader) transfer(localFile string, dest RemotePath) error {
	err := u.put(localFile, dest)
	if err == nil {
		u.uploaded++
		u.info("uploaded: %s -> %s", localFile, dest)
		return nil
	}
	if IsFatal(err) {
		return err
	}
	u.failed++
	u.err("failed to upload %s: %s", localFile, err)
	return nil
}

func (u *Uploader) put(localFile string, dest RemotePath) error {
	source, err := os.Open(localFile)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()
	stats, err := source.Stat()
	if err != nil {
		return err
	}
	target, err := u.session.Create(string(dest))
	if err != nil {
		return err
	}
	var reader io.Reader = source
	var bar *pb.ProgressBar
	if u.progress {
		bar = newBar(stats.Size())
		reader = bar.NewProxyReader(source)
	}
	_, err = io.Copy(target, reader)
	if bar != nil {
		bar.Finish()
	}
	if cerr := target.Close(); err == nil {
		err = cerr
	}
	return err
}

func newBar(size int64) *pb.ProgressBar {
	bar := pb.New(int(size)).SetUnits(pb.U_BYTES).SetRefreshRate(time.Second).SetMaxWidth(72)
	bar.ShowElapsedTime = false
	bar.ShowFinalTime = false
	bar.ShowTimeLeft = false
	bar.Start()
	return bar
}
