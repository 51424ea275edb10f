package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// logHostCapacity reports process RSS and host core count once at
// startup, informing the operator whether the configured tick-worker
// count matches the box this process is actually running on.
func logHostCapacity(log zerolog.Logger) {
	cores, err := cpu.Counts(true)
	if err != nil {
		log.Warn().Err(err).Msg("host stats: read core count")
		cores = 0
	}

	var rss uint64
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			rss = info.RSS
		}
	}

	var totalMem uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMem = vm.Total
	}

	log.Info().
		Int("logical_cores", cores).
		Uint64("process_rss_bytes", rss).
		Uint64("host_memory_bytes", totalMem).
		Msg("host capacity")
}
