package lib

import (
	"os"

	"github.com/scylladb/go-set/strset"
	"go.uber.org/zap"
)

// Ensurer creates remote directories on demand. It remembers the directories
// it has already checked, so that during a batch every directory is probed at
// most once.
type Ensurer struct {
	session Session
	seen    *strset.Set
	logger  *zap.SugaredLogger
}

func NewEnsurer(session Session, logger *zap.SugaredLogger) *Ensurer {
	return &Ensurer{
		session: session,
		seen:    strset.New(),
		logger:  logger,
	}
}

// Ensure makes sure that dirname and all its ancestors exist on the remote
// side, creating the missing ones from the top down. A failed creation is
// logged and tolerated: if the directory is really absent, the following file
// transfer fails and reports the actual cause. Only connection-level errors
// are returned.
func (e *Ensurer) Ensure(dirname RemotePath) error {
	if dirname.IsRoot() || e.seen.Has(string(dirname)) {
		return nil
	}
	var chain []RemotePath
	for p := dirname; !p.IsRoot(); p = p.Dir() {
		chain = append(chain, p)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		dir := string(chain[i])
		if e.seen.Has(dir) {
			continue
		}
		_, err := e.session.Stat(dir)
		if err == nil {
			e.seen.Add(dir)
			continue
		}
		if IsFatal(err) {
			return err
		}
		if !os.IsNotExist(err) {
			e.logger.Debugw("remote stat failed, assuming the directory is absent", "path", dir, "error", err)
		}
		err = e.session.Mkdir(dir)
		if err != nil {
			if IsFatal(err) {
				return err
			}
			e.logger.Warnw("failed to create remote directory", "path", dir, "error", err)
			continue
		}
		e.logger.Infow("created remote directory", "path", dir)
		e.seen.Add(dir)
	}
	return nil
}
