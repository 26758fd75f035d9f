package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-shellwords"
	"github.com/peterh/liner"
)

// selectSourcesMenu is the line-based fallback when the full-screen picker
// can not run: enter file paths, enter a folder path, or pick an entry from a
// listing of the working directory.
func selectSourcesMenu() ([]string, error) {
	l := liner.NewLiner()
	defer func() { _ = l.Close() }()
	l.SetCtrlCAborts(true)

	for {
		fmt.Println()
		fmt.Println(aurora.Bold("1."), "enter file path(s)")
		fmt.Println(aurora.Bold("2."), "enter a folder path")
		fmt.Println(aurora.Bold("3."), "list the current directory")
		fmt.Println(aurora.Bold("4."), "quit")
		choice, err := l.Prompt("select an option (1-4): ")
		if err != nil {
			if err == liner.ErrPromptAborted {
				return nil, nil
			}
			return nil, err
		}
		switch strings.TrimSpace(choice) {
		case "1":
			files, err := promptFiles(l)
			if err != nil {
				return nil, err
			}
			if len(files) != 0 {
				return files, nil
			}
		case "2":
			dir, err := promptFolder(l)
			if err != nil {
				return nil, err
			}
			if dir != "" {
				return []string{dir}, nil
			}
		case "3":
			selected, err := pickFromListing(l)
			if err != nil {
				return nil, err
			}
			if selected != "" {
				return []string{selected}, nil
			}
		case "4":
			return nil, nil
		default:
			fmt.Fprintln(os.Stderr, aurora.Red("invalid option"))
		}
	}
}

func promptFiles(l *liner.State) ([]string, error) {
	line, err := l.Prompt("file path(s): ")
	if err != nil {
		if err == liner.ErrPromptAborted {
			return nil, nil
		}
		return nil, err
	}
	names, err := shellwords.Parse(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, aurora.Red(fmt.Sprintf("invalid input: %s", err)))
		return nil, nil
	}
	var files []string
	for _, name := range names {
		stats, err := os.Stat(name)
		if err != nil || !stats.Mode().IsRegular() {
			fmt.Fprintln(os.Stderr, aurora.Red(fmt.Sprintf("not an existing regular file: %s", name)))
			continue
		}
		files = append(files, name)
	}
	return files, nil
}

func promptFolder(l *liner.State) (string, error) {
	line, err := l.Prompt("folder path: ")
	if err != nil {
		if err == liner.ErrPromptAborted {
			return "", nil
		}
		return "", err
	}
	line = strings.Trim(strings.TrimSpace(line), `"`)
	stats, err := os.Stat(line)
	if err != nil || !stats.IsDir() {
		fmt.Fprintln(os.Stderr, aurora.Red(fmt.Sprintf("not an existing folder: %s", line)))
		return "", nil
	}
	return line, nil
}

func pickFromListing(l *liner.State) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	fmt.Println("current directory:", aurora.Bold(cwd))
	infos, err := ioutil.ReadDir(cwd)
	if err != nil {
		return "", err
	}
	for i, info := range infos {
		kind := "FILE"
		if info.IsDir() {
			kind = "DIR "
		}
		fmt.Printf("%3d. [%s] %s\n", i+1, kind, info.Name())
	}
	sel, err := l.Prompt("enter a number to select an entry (empty to go back): ")
	if err != nil {
		if err == liner.ErrPromptAborted {
			return "", nil
		}
		return "", err
	}
	idx, err := strconv.Atoi(strings.TrimSpace(sel))
	if err != nil || idx < 1 || idx > len(infos) {
		return "", nil
	}
	return filepath.Join(cwd, infos[idx-1].Name()), nil
}
