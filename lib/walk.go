package lib

import (
	"path/filepath"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// WalkFunc receives, for every directory and regular file under the walked
// root, its absolute path, its path relative to the root (always with forward
// slashes) and whether it is a directory. A directory is always delivered
// before its content; the root itself is delivered first, as ".".
type WalkFunc func(path, rel string, isdir bool) error

// WalkLocal lazily traverses a local directory tree in lexical order.
// Irregular files are ignored and unreadable subtrees are logged and skipped.
// The callback may return filepath.SkipDir to prune a directory.
func WalkLocal(root string, cb WalkFunc, l *zap.SugaredLogger) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			relName, err := filepath.Rel(root, osPathname)
			if err != nil {
				return err
			}
			if de.IsDir() || de.IsRegular() {
				return cb(osPathname, filepath.ToSlash(relName), de.IsDir())
			}
			return nil
		},
		ErrorCallback: func(path string, e error) godirwalk.ErrorAction {
			if l != nil {
				l.Debugw("error walking local directory", "path", path, "error", e)
			}
			return godirwalk.SkipNode
		},
	})
}
