package managed

import "strings"

// Kind tells how a path is tracked.
type Kind uint8

const (
	// KindPlain paths are tracked individually.
	KindPlain Kind = iota
	// KindImmutable paths are assumed never to change.
	KindImmutable
	// KindManaged paths are tracked through the package that contains them.
	KindManaged
)

// Classification is the result of classifying one path.
type Classification struct {
	Kind Kind
	// Item is the containing package directory for KindManaged.
	Item string
}

// Classifier decides how each path is tracked based on the configured roots.
// Unmanaged roots take precedence over immutable roots, which take precedence
// over managed roots.
type Classifier struct {
	managed   []string
	immutable []string
	unmanaged []string
}

// NewClassifier returns a classifier for the given roots.
func NewClassifier(managedPaths, immutablePaths, unmanagedPaths []string) *Classifier {
	return &Classifier{
		managed:   withSeparators(managedPaths),
		immutable: withSeparators(immutablePaths),
		unmanaged: withSeparators(unmanagedPaths),
	}
}

// Classify classifies path.
func (c *Classifier) Classify(path string) Classification {
	for _, root := range c.unmanaged {
		if strings.HasPrefix(path, root) {
			return Classification{Kind: KindPlain}
		}
	}
	for _, root := range c.immutable {
		if strings.HasPrefix(path, root) {
			return Classification{Kind: KindImmutable}
		}
	}
	for _, root := range c.managed {
		if !strings.HasPrefix(path, root) {
			continue
		}
		if item, ok := Item(root, path); ok {
			return Classification{Kind: KindManaged, Item: item}
		}
	}
	return Classification{Kind: KindPlain}
}

func withSeparators(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if r == "" {
			continue
		}
		if !strings.HasSuffix(r, "/") && !strings.HasSuffix(r, `\`) {
			if strings.Contains(r, `\`) && !strings.Contains(r, "/") {
				r += `\`
			} else {
				r += "/"
			}
		}
		out = append(out, r)
	}
	return out
}
