package main

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/awnumar/memguard"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/logrusorgru/aurora"
	"github.com/mitchellh/go-homedir"
	"github.com/peterh/liner"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/stephane-martin/sftpup/lib"
	"github.com/stephane-martin/sftpup/params"
)

const folderIcon = "\xF0\x9F\x97\x80 "
const fileIcon = "\xF0\x9F\x97\x88 "

func uploadCommand() cli.Command {
	return cli.Command{
		Name:      "upload",
		Usage:     "upload files or directories to the remote server",
		ArgsUsage: "[user@]host",
		Action:    uploadAction,
		Flags: []cli.Flag{
			cli.StringSliceFlag{
				Name:  "source,src",
				Usage: "local file or directory to upload (can be repeated)",
			},
			cli.StringFlag{
				Name:   "remote-base,dest,dst",
				Usage:  "remote base directory (default: the SFTP start directory)",
				EnvVar: "SFTP_REMOTE_BASE",
				Value:  "",
			},
			cli.StringFlag{
				Name:   "login_name,l",
				Usage:  "SSH remote user",
				EnvVar: "SSH_USER",
			},
			cli.IntFlag{
				Name:   "ssh-port,p",
				Usage:  "SSH remote port",
				EnvVar: "SSH_PORT",
				Value:  22,
			},
			cli.StringFlag{
				Name:   "privkey,identity,i",
				Usage:  "filesystem path to SSH private key",
				EnvVar: "IDENTITY",
				Value:  "",
			},
			cli.BoolFlag{
				Name:  "password",
				Usage: "ask for a password instead of using a private key",
			},
			cli.BoolFlag{
				Name:   "insecure",
				Usage:  "do not check the remote SSH host key",
				EnvVar: "SFTPUP_INSECURE",
			},
			cli.BoolFlag{
				Name:  "yes,y",
				Usage: "do not ask for confirmation before uploading",
			},
			cli.BoolFlag{
				Name:  "warn-skipped",
				Usage: "report list entries that are skipped instead of ignoring them silently",
			},
		},
	}
}

func uploadAction(c *cli.Context) (e error) {
	defer func() {
		if e != nil {
			e = cli.NewExitError(e.Error(), 1)
		}
	}()

	logger, err := params.Logger(c.GlobalString("loglevel"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	args := c.Args()
	if len(args) == 0 {
		return errors.New("no host provided")
	}
	sshParams, err := params.GetSSHParams(args[0], c.String("login_name"), c.Int("ssh-port"), c.Bool("insecure"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range sigchan {
			cancel()
		}
	}()

	sources := filterOutEmptyStrings(c.StringSlice("source"))
	if len(sources) == 0 {
		sources, err = selectSources(logger)
		if err != nil {
			return err
		}
	}
	if len(sources) == 0 {
		return errors.New("no file or folder selected")
	}

	req, err := lib.MakeRequest(sources)
	if err != nil {
		return err
	}

	if !c.Bool("yes") {
		confirmed, err := confirmUpload(req)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("upload cancelled")
			return nil
		}
	}

	methods, err := getAuthMethods(c, sshParams)
	if err != nil {
		return err
	}

	session, err := lib.Dial(ctx, sshParams, methods, logger)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	uploader := lib.NewUploader(session, logger).
		WithProgress(terminal.IsTerminal(int(os.Stdout.Fd()))).
		WarnSkipped(c.Bool("warn-skipped")).
		WithReporter(
			func(format string, args ...interface{}) {
				fmt.Println(aurora.Green(fmt.Sprintf(format, args...)))
			},
			func(format string, args ...interface{}) {
				fmt.Fprintln(os.Stderr, aurora.Red(fmt.Sprintf(format, args...)))
			},
		)

	remoteBase := lib.JoinRemote(c.String("remote-base"))
	if err := uploader.EnsureBase(remoteBase); err != nil {
		return err
	}
	return uploader.Do(req, remoteBase)
}

func filterOutEmptyStrings(a []string) []string {
	var b []string
	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" {
			b = append(b, s)
		}
	}
	return b
}

type pickEntry struct {
	path  string
	rel   string
	isdir bool
}

// selectSources asks the user what to upload: first with the full-screen
// fuzzy finder over the working directory, then with the line-based menu when
// the finder is unusable or aborted.
func selectSources(logger *zap.SugaredLogger) ([]string, error) {
	if !terminal.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("you must specify the sources")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	var paths []pickEntry
	err = lib.WalkLocal(cwd, func(path, rel string, isdir bool) error {
		if rel == "." {
			return nil
		}
		if strings.HasPrefix(filepath.Base(rel), ".") {
			if isdir {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, pickEntry{path: path, rel: rel, isdir: isdir})
		return nil
	}, logger)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return selectSourcesMenu()
	}
	idx, err := fuzzyfinder.FindMulti(paths, func(i int) string {
		if paths[i].isdir {
			return folderIcon + paths[i].rel
		}
		return fileIcon + paths[i].rel
	})
	if err != nil {
		logger.Debugw("fuzzy finder not usable, falling back to the menu", "error", err)
		return selectSourcesMenu()
	}
	var names []string
	for _, i := range idx {
		names = append(names, paths[i].path)
	}
	return names, nil
}

func confirmUpload(req lib.Request) (bool, error) {
	var what string
	switch r := req.(type) {
	case lib.FileRequest:
		what = fmt.Sprintf("file %s", r.Path)
	case lib.TreeRequest:
		what = fmt.Sprintf("folder %s", r.Path)
	case lib.ListRequest:
		what = fmt.Sprintf("%d file(s)", len(r.Paths))
	}
	l := liner.NewLiner()
	defer func() { _ = l.Close() }()
	l.SetCtrlCAborts(true)
	answer, err := l.Prompt(fmt.Sprintf("upload %s to the SFTP server? [y/N] ", what))
	if err != nil {
		if err == liner.ErrPromptAborted {
			return false, nil
		}
		return false, err
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y"), nil
}

func getAuthMethods(c *cli.Context, sshParams params.SSHParams) ([]ssh.AuthMethod, error) {
	if c.Bool("password") {
		fmt.Fprintf(os.Stderr, "password for %s@%s: ", sshParams.LoginName, sshParams.Host)
		b, err := terminal.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, err
		}
		password, err := memguard.NewImmutableFromBytes(b)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{ssh.Password(string(password.Buffer()))}, nil
	}
	privkeyPath := strings.TrimSpace(c.String("privkey"))
	if privkeyPath == "" {
		var err error
		privkeyPath, err = homedir.Expand("~/.ssh/id_rsa")
		if err != nil {
			return nil, fmt.Errorf("failed to expand private key path: %s", err)
		}
	}
	b, err := ioutil.ReadFile(privkeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %s", err)
	}
	privkey, err := memguard.NewImmutableFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("failed to create memguard for private key: %s", err)
	}
	signer, err := ssh.ParsePrivateKey(privkey.Buffer())
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %s", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}
