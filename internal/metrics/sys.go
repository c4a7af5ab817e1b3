package metrics

import (
	"os"
	"runtime"
)

// SysHealth is a snapshot of the process and of the SQLite files it writes.
type SysHealth struct {
	AllocMB    uint64
	SysMB      uint64
	NumGC      uint32
	Goroutines int

	DatabaseBytes uint64
	// JournalBytes covers the -wal and -shm files next to the database.
	JournalBytes uint64
}

// GetSysHealth reads runtime memory stats and the on-disk size of the
// database at databasePath. Missing files count as zero.
func GetSysHealth(databasePath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h := SysHealth{
		AllocMB:       m.Alloc / 1024 / 1024,
		SysMB:         m.Sys / 1024 / 1024,
		NumGC:         m.NumGC,
		Goroutines:    runtime.NumGoroutine(),
		DatabaseBytes: fileSize(databasePath),
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		h.JournalBytes += fileSize(databasePath + suffix)
	}
	return h
}

func fileSize(path string) uint64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return uint64(info.Size())
}
