package lib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/stephane-martin/sftpup/params"
)

// Session is the part of the SFTP client the upload engine relies on. The
// engine only borrows the session: establishing and tearing down the
// connection is the caller's job.
type Session interface {
	Stat(path string) (os.FileInfo, error)
	Mkdir(path string) error
	Create(path string) (io.WriteCloser, error)
	Getwd() (string, error)
	Close() error
}

type sftpSession struct {
	*sftp.Client
	conn     *ssh.Client
	stopping chan struct{}
	once     sync.Once
	closeErr error
}

func (s *sftpSession) Create(path string) (io.WriteCloser, error) {
	return s.Client.Create(path)
}

func (s *sftpSession) Close() error {
	s.once.Do(func() {
		close(s.stopping)
		s.closeErr = s.Client.Close()
		_ = s.conn.Close()
	})
	return s.closeErr
}

// Dial connects to the remote server and opens a SFTP session on top of the
// connection. When ctx is canceled the session is closed, so that blocked
// remote calls fail fast instead of hanging.
func Dial(ctx context.Context, sshParams params.SSHParams, auth []ssh.AuthMethod, l *zap.SugaredLogger) (Session, error) {
	if len(auth) == 0 {
		return nil, errors.New("no auth method")
	}
	hkcb, err := makeHostKeyCallback(sshParams.Insecure, l)
	if err != nil {
		return nil, err
	}
	cfg := &ssh.ClientConfig{
		User:            sshParams.LoginName,
		Auth:            auth,
		HostKeyCallback: hkcb,
	}
	addr := net.JoinHostPort(sshParams.Host, strconv.Itoa(sshParams.Port))
	l.Debugw("connecting", "addr", addr, "user", cfg.User)
	conn, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %s", addr, err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a SFTP session: %s", err)
	}
	s := &sftpSession{Client: client, conn: conn, stopping: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.stopping:
		}
	}()
	return s, nil
}

func makeHostKeyCallback(insecure bool, l *zap.SugaredLogger) (ssh.HostKeyCallback, error) {
	if insecure {
		return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			l.Debugw("host key", "hostname", hostname, "remote", remote.String(), "key", string(bytes.TrimSpace(ssh.MarshalAuthorizedKey(key))))
			return nil
		}, nil
	}
	kh, err := homedir.Expand("~/.ssh/known_hosts")
	if err != nil {
		return nil, fmt.Errorf("failed to expand known_hosts path: %s", err)
	}
	callback, err := knownhosts.New(kh)
	if err != nil {
		return nil, fmt.Errorf("failed to open known_hosts file: %s", err)
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		l.Debugw("host key", "hostname", hostname, "remote", remote.String(), "key", string(bytes.TrimSpace(ssh.MarshalAuthorizedKey(key))))
		return callback(hostname, remote, key)
	}, nil
}

// IsFatal reports whether err is a connection-level failure. Such an error
// aborts the whole batch, contrary to per-directory and per-file errors.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if err == io.EOF || err == sftp.ErrSshFxConnectionLost || err == sftp.ErrSshFxNoConnection {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection lost") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "failed to send packet")
}
