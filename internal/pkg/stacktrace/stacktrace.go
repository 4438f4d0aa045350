// Package stacktrace condenses raw goroutine stacks down to the frames that
// belong to this repository, so panic logs stay readable.
package stacktrace

import "strings"

// InternalPaths extracts the file:line locations under internal/ from a raw
// stack trace. Frames from the runtime and third-party modules are skipped.
func InternalPaths(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")

	var paths []string
	// Location lines follow the function-name lines, hence the offset.
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		idx := strings.Index(line, ".go:")
		if idx == -1 || !strings.Contains(line, "/internal/") {
			continue
		}

		end := strings.Index(line[idx:], " ")
		if end == -1 {
			end = len(line)
		} else {
			end += idx
		}

		loc := line[:end]
		if cut := strings.Index(loc, "/internal/"); cut != -1 {
			paths = append(paths, loc[cut+1:])
		}
	}

	return paths
}
