package runtime

import (
	"github.com/KimMachineGun/automemlimit/memlimit"
	"go.uber.org/automaxprocs/maxprocs"
)

// tuneToEnvironment sets GOMAXPROCS and GOMEMLIMIT from the surrounding
// cgroup quota, the way a process deployed under a container scheduler
// should. Both calls are safe no-ops outside a cgroup (bare metal, most
// developer machines).
func tuneToEnvironment() error {
	if _, err := maxprocs.Set(); err != nil {
		return err
	}
	if _, err := memlimit.SetGoMemLimitWithOpts(); err != nil {
		return err
	}
	return nil
}
