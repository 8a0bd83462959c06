// system.go captures host and process state at report time.

package er2

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

var (
	runtimeVersion = runtime.Version()
	runtimeMode    = runtime.Compiler
)

// HostIdentity is the host platform's self-description. Fields are copied
// verbatim from the platform; no parsing or normalization is applied.
type HostIdentity struct {
	Name      Optional[string]
	OS        Optional[string]
	OSRelease Optional[string]
	OSVersion Optional[string]
}

// HostLookup produces the host identity. It exists so tests can pin the
// identity of the machine they run on.
type HostLookup func(ctx context.Context) HostIdentity

// LookupHost reads the host identity from the platform. A failed platform
// query leaves the name, release and version absent; the OS name is the
// operating system the binary was built for and is always present.
func LookupHost(ctx context.Context) HostIdentity {
	id := HostIdentity{OS: Some(runtime.GOOS)}

	info, err := host.InfoWithContext(ctx)
	if err != nil || info == nil {
		return id
	}

	id.Name = Some(info.Hostname)
	id.OSRelease = Some(info.KernelVersion)
	id.OSVersion = Some(info.PlatformVersion)
	return id
}

// memoryUsage returns the bytes of allocated heap objects.
func memoryUsage() uint64 {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return memStats.Alloc
}
