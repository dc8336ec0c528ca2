package app

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/ui/output"
	"go.trai.ch/fsnap/internal/ui/style"
)

// Inspect writes the snapshot forest stored under key to w.
func (a *App) Inspect(ctx context.Context, key string, w io.Writer) (err error) {
	_, span := a.tracer.Start(ctx, "inspect", trace.WithAttributes(attribute.String("key", key)))
	defer func() { endSpan(span, err) }()

	snap, err := a.load(key)
	if err != nil {
		return err
	}

	p := &printer{
		styles: style.New(output.Renderer(w)),
		refs:   countReferences(snap),
		ids:    make(map[*domain.Snapshot]int),
	}
	p.line(0, "%s %s", p.styles.Title.Render("snapshot"), key)
	p.line(0, "%s %d  %s %d  %s %d",
		p.styles.Muted.Render("files"), len(snap.Files()),
		p.styles.Muted.Render("directories"), len(snap.Directories()),
		p.styles.Muted.Render("missing"), len(snap.Missing()),
	)
	p.node(snap, 0)

	_, err = io.WriteString(w, p.buf.String())
	return err
}

type printer struct {
	buf    strings.Builder
	styles style.Styles
	refs   map[*domain.Snapshot]int
	ids    map[*domain.Snapshot]int
}

func (p *printer) line(depth int, format string, args ...any) {
	p.buf.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&p.buf, format, args...)
	p.buf.WriteByte('\n')
}

func (p *printer) node(s *domain.Snapshot, depth int) {
	if id, seen := p.ids[s]; seen {
		p.line(depth, "%s", p.styles.Shared.Render(fmt.Sprintf("%s #%d (see above)", style.Circle, id)))
		return
	}
	id := len(p.ids)
	p.ids[s] = id

	header := fmt.Sprintf("%s #%d", style.Dot, id)
	if p.refs[s] > 1 {
		header = p.styles.Shared.Render(fmt.Sprintf("%s #%d shared", style.Circle, id))
	}
	if start, ok := s.StartTime(); ok {
		header += " " + p.styles.Muted.Render("start "+strconv.FormatInt(start, 10))
	}
	p.line(depth, "%s", header)

	for _, sec := range sections {
		if !sec.has(s) {
			continue
		}
		entries := sec.entries(s)
		p.line(depth+1, "%s (%d)", p.styles.Title.Render(sec.name), len(entries))
		for _, e := range entries {
			if e.value == "" {
				p.line(depth+2, "%s", e.path)
				continue
			}
			p.line(depth+2, "%s  %s", e.path, p.styles.Muted.Render(e.value))
		}
	}

	for _, child := range s.Children() {
		p.node(child, depth+1)
	}
}

// countReferences counts how many parents reference each node of the forest.
func countReferences(root *domain.Snapshot) map[*domain.Snapshot]int {
	refs := map[*domain.Snapshot]int{root: 1}
	var walk func(n *domain.Snapshot)
	walk = func(n *domain.Snapshot) {
		for _, c := range n.Children() {
			refs[c]++
			if refs[c] == 1 {
				walk(c)
			}
		}
	}
	walk(root)
	return refs
}

type entry struct {
	path  string
	value string
}

type section struct {
	name    string
	has     func(s *domain.Snapshot) bool
	entries func(s *domain.Snapshot) []entry
}

func fieldSection[V any](f domain.Field[V], format func(V) string) section {
	return section{
		name: f.Name(),
		has:  f.Has,
		entries: func(s *domain.Snapshot) []entry {
			m := f.Get(s)
			out := make([]entry, 0, len(m))
			for _, path := range slices.Sorted(maps.Keys(m)) {
				out = append(out, entry{path: path, value: format(m[path])})
			}
			return out
		},
	}
}

var sections = []section{
	fieldSection(domain.FileTimestamps, formatTimestamp),
	fieldSection(domain.FileHashes, formatHash),
	fieldSection(domain.FileTshs, formatTsh),
	fieldSection(domain.ContextTimestamps, formatTimestamp),
	fieldSection(domain.ContextHashes, formatHash),
	fieldSection(domain.ContextTshs, formatTsh),
	fieldSection(domain.MissingExistence, formatExistence),
	fieldSection(domain.ManagedItemInfo, func(v string) string { return v }),
	fieldSection(domain.ManagedFiles, formatMember),
	fieldSection(domain.ManagedContexts, formatMember),
	fieldSection(domain.ManagedMissing, formatMember),
}

func formatTimestamp(ts *domain.TimestampFact) string {
	switch {
	case ts == nil:
		return "absent"
	case ts.Ignore:
		return "ignored"
	case ts.TimestampHash != "":
		return "tsh " + ts.TimestampHash
	default:
		return "mtime " + strconv.FormatInt(ts.Timestamp, 10)
	}
}

func formatHash(h string) string {
	if h == domain.HashAbsent {
		return "absent"
	}
	return h
}

func formatTsh(tsh *domain.TimestampAndHash) string {
	if tsh == nil {
		return "absent"
	}
	return "hash " + formatHash(tsh.Hash)
}

func formatExistence(exists bool) string {
	if exists {
		return "exists"
	}
	return "absent"
}

func formatMember(struct{}) string { return "" }
