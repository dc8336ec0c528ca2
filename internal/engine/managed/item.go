// Package managed classifies paths below managed and immutable roots.
//
// A managed root holds installed packages (typically node_modules). Every package
// below it is cached as one unit identified by its manifest instead of file by file.
package managed

const nodeModules = "node_modules"

// Item returns the directory of the package that contains path, for a path below
// root. root must end with a separator. Scoped packages (@scope/name) span two
// segments and a node_modules directory inside a package opens a nested root.
// It reports false for hidden segments, malformed scopes and incomplete paths.
func Item(root, path string) (string, bool) {
	if len(path) <= len(root) {
		return "", false
	}

	i := len(root)
	segments := 1
	atStart := true

scan:
	for i < len(path) {
		switch path[i] {
		case '/', '\\':
			segments--
			if segments == 0 {
				break scan
			}
			atStart = true
		case '.':
			if atStart {
				return "", false
			}
		case '@':
			if !atStart {
				return "", false
			}
			segments++
		default:
			atStart = false
		}
		i++
	}

	if i == len(path) {
		segments--
	}
	if segments != 0 || i == len(root) {
		return "", false
	}

	end := i + 1 + len(nodeModules)
	if len(path) >= end && path[i+1:end] == nodeModules {
		if len(path) == end {
			return path[:end], true
		}
		if c := path[end]; c == '/' || c == '\\' {
			return Item(path[:end+1], path)
		}
	}

	return path[:i], true
}
