// Package netutil holds the small amount of port plumbing the local
// scheduler needs: allocating a free port for a spawned process and waiting
// for a process to start listening.
package netutil

import (
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"
)

// GetFreePort asks the kernel for a free port and releases it before
// returning. The caller hands the port to a child process, accepting the
// small window in which something else could grab it.
func GetFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// WaitForPort waits 10 seconds for a process to listen to the port, and
// returns an error if the port remains closed.
func WaitForPort(port int) error {
	return WaitForPortTimeout(port, 10*time.Second)
}

// WaitForPortTimeout waits timeout for a process to listen to the port, and
// returns an error if the port remains closed.
func WaitForPortTimeout(port int, timeout time.Duration) error {
	log.Infof("Waiting for port %v for %v", port, timeout)
	addr := fmt.Sprintf("localhost:%d", port)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = timeout

	return backoff.Retry(func() error {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			return fmt.Errorf("port %v is not up: %v", port, err)
		}
		conn.Close()
		log.Infof("Port %v active", port)
		return nil
	}, b)
}
