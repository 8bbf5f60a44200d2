package transfer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alessio/shellescape"
)

const (
	// DefaultConnectTimeout bounds how long scp and ssh wait to establish a
	// connection.
	DefaultConnectTimeout = 5 * time.Second

	defaultCopyProgram  = "/usr/bin/scp"
	defaultShellProgram = "ssh"
	localCopyProgram    = "cp"
)

// HostString formats the address of a remote host as `user:password@host`,
// `user@host`, or `host` depending on which credentials are given.
func HostString(host, user, password string) string {
	switch {
	case user != "" && password != "":
		return fmt.Sprintf("%s:%s@%s", user, password, host)
	case user != "":
		return fmt.Sprintf("%s@%s", user, host)
	default:
		return host
	}
}

// commands builds the shell commands run by the engine. An empty host
// targets the local machine, so the commands are run without scp or ssh.
type commands struct {
	copyProgram    string
	shellProgram   string
	connectTimeout time.Duration
}

func (c commands) connectOpt() string {
	secs := int(math.Ceil(c.connectTimeout.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("-o ConnectTimeout=%d", secs)
}

func (c commands) copy(localPath, host, remotePath string) string {
	if host == "" {
		return fmt.Sprintf("%s %s %s", localCopyProgram,
			quote(localPath), quote(remotePath))
	}
	return fmt.Sprintf("%s %s %s %s", c.copyProgram, c.connectOpt(),
		quote(localPath), quote(host+":"+remotePath))
}

// mkdir checks for the directory before creating it, so it succeeds when the
// directory already exists.
func (c commands) mkdir(host, dir string) string {
	if host == "" {
		d := quote(dir)
		return fmt.Sprintf("[ -d %s ] || mkdir -p %s", d, d)
	}

	d := remoteQuote(dir)
	remoteCmd := fmt.Sprintf("[ -d %s ] || mkdir -p %s", d, d)
	return fmt.Sprintf("%s %s %s %s", c.shellProgram, c.connectOpt(),
		quote(host), quote(remoteCmd))
}

// quote escapes `s` for a POSIX shell. Strings made only of safe characters
// are left as-is.
func quote(s string) string {
	return shellescape.Quote(s)
}

// remoteQuote quotes a path that's interpreted by the remote shell, leaving a
// leading `~` unquoted so that it expands to the remote user's home.
func remoteQuote(path string) string {
	switch {
	case path == "~":
		return path
	case strings.HasPrefix(path, "~/"):
		return "~/" + quote(path[2:])
	default:
		return quote(path)
	}
}
