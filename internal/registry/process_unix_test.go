//go:build unix

package registry_test

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"wavecatch/internal/testsupport"
)

func assertProcessGone(t *testing.T, pidFile string) {
	t.Helper()
	raw, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatalf("parse pid: %v", err)
	}
	testsupport.WaitFor(t, 5*time.Second, "stub process exit", func() bool {
		return errors.Is(unix.Kill(pid, 0), unix.ESRCH)
	})
}
