// Package envdetect detects process-wide facts about the runtime environment.
package envdetect

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// containerMarkers are files created by Docker and Podman inside containers.
var containerMarkers = []string{"/.dockerenv", "/run/.containerenv"}

// Detector answers whether the process runs inside a container. The answer is
// computed once and then served read-only.
type Detector struct {
	containerized func() bool
}

// New builds a detector. override is the raw CONTAINERIZED value; when it parses
// as a boolean it wins over the marker files.
func New(override string, markers ...string) *Detector {
	if len(markers) == 0 {
		markers = containerMarkers
	}
	return &Detector{
		containerized: sync.OnceValue(func() bool {
			return detect(override, markers, fileExists)
		}),
	}
}

// Fixed returns a detector with a predetermined answer.
func Fixed(containerized bool) *Detector {
	return &Detector{containerized: func() bool { return containerized }}
}

func (d *Detector) Containerized() bool { return d.containerized() }

func detect(override string, markers []string, exists func(string) bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(override)); err == nil {
		return v
	}
	for _, path := range markers {
		if exists(path) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
