// Package proctree takes point-in-time snapshots of the process table
// and answers descendant queries over the parent-link relation.
package proctree

import (
	"github.com/shirou/gopsutil/v3/process"
)

// Process is one entry of a snapshot.
type Process struct {
	PID  int32
	PPID int32
	Name string
}

// Snapshot is a point-in-time view of the process table keyed by pid.
// It carries no staleness guarantee beyond the moment it was taken.
type Snapshot map[int32]Process

// Inspector produces process snapshots.
type Inspector interface {
	Snapshot() (Snapshot, error)
}

// SystemInspector reads the live process table.
type SystemInspector struct{}

// Snapshot lists all running processes with their parent links. Entries
// whose name or parent cannot be read (the process may have exited
// mid-scan) are kept with whatever fields resolved.
func (SystemInspector) Snapshot() (Snapshot, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	snap := make(Snapshot, len(procs))
	for _, p := range procs {
		entry := Process{PID: p.Pid}
		if name, err := p.Name(); err == nil {
			entry.Name = name
		}
		if ppid, err := p.Ppid(); err == nil {
			entry.PPID = ppid
		}
		snap[p.Pid] = entry
	}
	return snap, nil
}

// Descendants expands {root} to root plus all transitive children by
// iterative rounds over the parent links: each round collects processes
// whose parent was discovered in the previous round, and the walk stops
// when a round adds nothing. Each pid enters the set at most once, so
// the walk terminates in at most tree-depth rounds.
func (s Snapshot) Descendants(root int32) map[int32]struct{} {
	all := map[int32]struct{}{root: {}}
	frontier := map[int32]struct{}{root: {}}
	for len(frontier) > 0 {
		next := make(map[int32]struct{})
		for pid, proc := range s {
			if _, seen := all[pid]; seen {
				continue
			}
			if _, ok := frontier[proc.PPID]; ok {
				next[pid] = struct{}{}
				all[pid] = struct{}{}
			}
		}
		frontier = next
	}
	return all
}

// Ancestry returns the chain from pid up to the root of its tree,
// starting at pid itself. Cycles in stale snapshots are cut off by the
// visited set.
func (s Snapshot) Ancestry(pid int32) []Process {
	var chain []Process
	visited := make(map[int32]struct{})
	for {
		proc, ok := s[pid]
		if !ok {
			return chain
		}
		if _, seen := visited[pid]; seen {
			return chain
		}
		visited[pid] = struct{}{}
		chain = append(chain, proc)
		if proc.PPID == 0 || proc.PPID == pid {
			return chain
		}
		pid = proc.PPID
	}
}
