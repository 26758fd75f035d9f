package params

import (
	"errors"
	"fmt"
	"os/user"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type SSHParams struct {
	Port      int
	Insecure  bool
	LoginName string
	Host      string
}

// GetSSHParams builds the SSH connection parameters from a [user@]host
// argument and the command line flags. When no login name is given anywhere,
// the current local user is used.
func GetSSHParams(host, loginName string, port int, insecure bool) (p SSHParams, err error) {
	p.Host = strings.TrimSpace(host)
	if p.Host == "" {
		return p, errors.New("empty host")
	}
	spl := strings.SplitN(p.Host, "@", 2)
	if len(spl) == 2 {
		p.LoginName = spl[0]
		p.Host = spl[1]
	}
	if p.LoginName == "" {
		p.LoginName = strings.TrimSpace(loginName)
		if p.LoginName == "" {
			u, err := user.Current()
			if err != nil {
				return p, err
			}
			p.LoginName = u.Username
		}
	}
	p.Port = port
	p.Insecure = insecure
	return p, nil
}

// Logger returns a sugared console logger at the given level.
func Logger(level string) (*zap.SugaredLogger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.DisableCaller = true
	zcfg.DisableStacktrace = true
	zcfg.Sampling = nil
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	loglevel := zapcore.InfoLevel
	_ = loglevel.Set(strings.ToLower(strings.TrimSpace(level)))
	zcfg.Level.SetLevel(loglevel)
	l, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize zap logger: %s", err)
	}
	return l.Sugar(), nil
}
