// Package infra implements infrastructure concerns (process invocation, logging, paths).
package infra

import (
	"errors"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// IsRunning checks if a PID exists and has not exited.
// Zombies still own a PID but are not running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}

	status, err := p.Status()
	if err != nil {
		// Process may have exited between the two calls
		ok, _ := p.IsRunning()
		return ok
	}
	for _, s := range status {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

// KillTree terminates a process and every descendant using SIGKILL.
// Descendants are collected before anything is killed, since they are
// reparented once their parent dies.
func (pm *ProcessManagerImpl) KillTree(pid int) error {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}

	tree := append([]*process.Process{root}, descendants(root.Pid)...)

	var errs []error
	for _, p := range tree {
		if err := p.Kill(); err != nil {
			if ok, _ := p.IsRunning(); ok {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// descendants walks a parent-to-children index built from one process table scan.
func descendants(pid int32) []*process.Process {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}

	children := make(map[int32][]*process.Process)
	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			continue // Process may have exited
		}
		children[ppid] = append(children[ppid], p)
	}

	var out []*process.Process
	queue := []int32{pid}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, c := range children[next] {
			out = append(out, c)
			queue = append(queue, c.Pid)
		}
	}
	return out
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
