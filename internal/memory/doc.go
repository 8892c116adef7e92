// Package memory keeps the wallet inside its container memory limit.
//
// Go does not read the cgroup memory limit, so GOMEMLIMIT has to be set
// explicitly. [ConfigureFromEnv] derives it from the container limit passed
// through the Kubernetes Downward API:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.8"
//
// GOMEMLIMIT, when set, wins over MEMORY_LIMIT. The ratio leaves headroom for
// libvips, which allocates outside the Go heap.
//
// # Backpressure
//
// Importing a photo decodes it twice (thumbnail and duplicate check read the
// full original), so a burst of large uploads can spike the heap. [Monitor]
// samples heap usage; above the critical mark it forces a GC and holds the
// import queue until usage falls below the high-water mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	queue.SetBackpressure(monitor)
//
// The monitor is a background worker and is started and stopped with the
// rest of the application.
package memory
