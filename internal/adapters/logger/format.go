package logger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// zerror is the part of zerr.Error used to print a chain link by link.
type zerror interface {
	Message() string
	Metadata() map[string]any
}

// ErrorEntry is one link of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries flattens err into its chain. Joined errors contribute their
// members in order. A zerr link without a message only annotates, so its metadata
// moves to the next link. Standard errors end the chain since their message
// already includes their causes.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	var pending map[string]any

	var walk func(err error)
	walk = func(err error) {
		for err != nil {
			if joined, ok := err.(interface{ Unwrap() []error }); ok {
				for _, e := range joined.Unwrap() {
					walk(e)
				}
				return
			}

			z, ok := err.(zerror)
			if !ok {
				entries = append(entries, ErrorEntry{Message: err.Error(), Metadata: pending})
				pending = nil
				return
			}

			if z.Message() == "" {
				if pending == nil {
					pending = make(map[string]any)
				}
				maps.Copy(pending, z.Metadata())
			} else {
				md := z.Metadata()
				maps.Copy(md, pending)
				pending = nil
				entries = append(entries, ErrorEntry{Message: z.Message(), Metadata: md})
			}
			err = errors.Unwrap(err)
		}
	}
	walk(err)

	if len(pending) > 0 && len(entries) > 0 {
		last := &entries[len(entries)-1]
		if last.Metadata == nil {
			last.Metadata = make(map[string]any)
		}
		maps.Copy(last.Metadata, pending)
	}
	return entries
}

// formatErrorEntries renders entries as the main error followed by its causes.
func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string

	for i, e := range entries {
		msgLines := strings.Split(e.Message, "\n")

		first, indent := "Error: ", "       "
		if i > 0 {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			first, indent = "    → ", "      "
		}

		lines = append(lines, first+msgLines[0])
		for _, line := range msgLines[1:] {
			lines = append(lines, indent+line)
		}
		for _, k := range slices.Sorted(maps.Keys(e.Metadata)) {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, k, e.Metadata[k]))
		}
	}

	return strings.Join(lines, "\n")
}
