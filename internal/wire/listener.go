package wire

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Listener accepts client connections on a Wayland-style UNIX socket
// under XDG_RUNTIME_DIR, guarded by a companion lock file so a second
// compositor can't bind the same display name.
type Listener struct {
	ln       *net.UnixListener
	lockFile *os.File
	sockPath string
}

// Listen creates the socket at $runtimeDir/$displayName (e.g.
// "wayland-1") and the matching "<name>.lock" advisory lock.
func Listen(runtimeDir, displayName string) (*Listener, error) {
	if runtimeDir == "" {
		return nil, fmt.Errorf("wire: XDG_RUNTIME_DIR is not set")
	}
	sockPath := filepath.Join(runtimeDir, displayName)
	lockPath := sockPath + ".lock"

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("wire: open lock file: %w", err)
	}
	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("wire: display %q already in use: %w", displayName, err)
	}

	// A stale socket from a crashed compositor holding the same name is
	// safe to remove now that we hold the lock.
	_ = os.Remove(sockPath)

	addr, err := net.ResolveUnixAddr("unix", sockPath)
	if err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("wire: resolve socket address: %w", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("wire: listen on %s: %w", sockPath, err)
	}
	if err := os.Chmod(sockPath, 0700); err != nil {
		ln.Close()
		lockFile.Close()
		return nil, fmt.Errorf("wire: chmod socket: %w", err)
	}

	return &Listener{ln: ln, lockFile: lockFile, sockPath: sockPath}, nil
}

// Accept blocks for the next client connection.
func (l *Listener) Accept() (*Conn, error) {
	uc, err := l.ln.AcceptUnix()
	if err != nil {
		return nil, err
	}
	return NewConn(uc)
}

// File exposes the listening socket's descriptor. EventLoop does not use
// it; it accepts connections through Accept.
func (l *Listener) File() (*os.File, error) {
	return l.ln.File()
}

func (l *Listener) Close() error {
	err := l.ln.Close()
	os.Remove(l.sockPath)
	l.lockFile.Close()
	os.Remove(l.sockPath + ".lock")
	return err
}
