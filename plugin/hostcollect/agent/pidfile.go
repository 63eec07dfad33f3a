// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"
)

// pidFile holds an exclusive lock on the pid file for the lifetime of the process.
type pidFile struct {
	path string
	lock *flock.Flock
}

func lockPidFile(path string) (*pidFile, error) {
	locker := flock.New(path)

	ok, err := locker.TryLock()
	if err != nil {
		_ = locker.Close()
		return nil, fmt.Errorf("pid file '%s': %v", path, err)
	}
	if !ok {
		_ = locker.Close()
		return nil, fmt.Errorf("pid file '%s' is locked by another instance", path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = locker.Close()
		return nil, fmt.Errorf("pid file '%s': %v", path, err)
	}

	return &pidFile{path: path, lock: locker}, nil
}

func (p *pidFile) release() {
	if p == nil {
		return
	}
	_ = os.Remove(p.path)
	_ = p.lock.Close()
}
