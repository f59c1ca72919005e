package config

import "time"

const (
	MaxProgramSize = 10 * 1024 * 1024 // 10 MB

	// ChromeOffset is subtracted from the viewport height before sizing the
	// editor and the preview surface.
	ChromeOffset = 50

	DefaultMode = "javascript"

	WSWriteTimeout = 10 * time.Second
	ShutdownWait   = 10 * time.Second
)

const (
	EndpointShapeProgram = "program"
	EndpointShapeUpdate  = "update"

	StorageMemory = "memory"
	StorageDir    = "dir"
	StorageSQLite = "sqlite"
)
