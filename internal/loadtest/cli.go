package loadtest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/lineup/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends the global logger to stdout and a log file. If logFile
// is empty, a timestamped name is generated.
func SetupLogging(logFile, format string) (io.Closer, error) {
	if logFile == "" {
		logFile = "lineup_load_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Configure(format, io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, err
	}
	return file, nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Lineup Load Tool
================

Submits random rosters to a running lineup service and checks every schedule.

Usage:
  go run ./cmd/lineup-load [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -requests int      Number of lineup requests (default 500)
  -workers int       Concurrent submitters (default CPU cores * 2)
  -rps float         Submission rate limit, 0 for unlimited (default 0)
  -teams int         Store lineups under this many teams, 0 uses /optimize (default 0)
  -min int           Smallest roster (default 10)
  -max int           Largest roster (default 15)
  -cannot float      Chance a preference is cannotPlay (default 0.2)
  -wants float       Chance a preference is wantsToPlay (default 0.2)
  -seed uint         Generator seed (default 1)
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Write the generated requests to this JSON file
  -log string        Log file (default lineup_load_TIMESTAMP.log)
  -verbose           Log every failed request
  -help              Show this help message

Examples:
  go run ./cmd/lineup-load -requests 2000 -workers 16
  go run ./cmd/lineup-load -teams 20 -rps 15 -seed 7
`)
}
