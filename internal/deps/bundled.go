package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpeg returns the ffmpeg binary lector should execute. The maya
// engine distribution bundles an ffmpeg build next to the engine binary;
// prefer it so export runs the same build the engine was validated against,
// then fall back to PATH resolution.
func ResolveFFmpeg(engineCommand string) string {
	return resolveBundled("ffmpeg", engineCommand)
}

// ResolveFFprobe returns the ffprobe binary lector should execute, using the
// same engine-adjacent lookup as ResolveFFmpeg.
func ResolveFFprobe(engineCommand string) string {
	return resolveBundled("ffprobe", engineCommand)
}

func resolveBundled(name, engineCommand string) string {
	engineBinary := strings.TrimSpace(engineCommand)
	if engineBinary != "" {
		if resolved, err := exec.LookPath(engineBinary); err == nil {
			if candidate, ok := bundledCandidate(resolved, name); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					return candidate
				}
			}
		}
	}
	return name
}

func bundledCandidate(enginePath, name string) (string, bool) {
	if enginePath == "" {
		return "", false
	}
	dir := filepath.Dir(enginePath)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
