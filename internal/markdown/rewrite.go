package markdown

import (
	"path"
	"path/filepath"
	"strings"
)

// Target is a saved image that references may be pointed at.
type Target struct {
	Identifier string
	Filename   string
}

// Rewriter points image references at saved files under <stem>/. References
// are parsed with the same rules as CollectRefs, so every destination that
// discovery reports can be rewritten.
type Rewriter struct {
	stem  string
	byKey map[string]Target
}

func NewRewriter(stem string, targets []Target) *Rewriter {
	r := &Rewriter{stem: stem, byKey: make(map[string]Target, len(targets)*2)}
	for _, t := range targets {
		for _, key := range []string{t.Identifier, StripExt(t.Identifier)} {
			if key == "" {
				continue
			}
			if _, taken := r.byKey[key]; !taken {
				r.byKey[key] = t
			}
		}
	}
	return r
}

// lookup matches a destination exactly, or with one trailing alphanumeric
// extension removed.
func (r *Rewriter) lookup(dest string) (Target, bool) {
	if t, ok := r.byKey[dest]; ok {
		return t, true
	}
	if ext := filepath.Ext(dest); extRe.MatchString(ext) {
		t, ok := r.byKey[strings.TrimSuffix(dest, ext)]
		return t, ok
	}
	return Target{}, false
}

// Rewrite returns src with every matching reference replaced by
// ![identifier](<stem>/<filename>), keeping a title if one was given. Each
// reference is visited once; other text is returned untouched.
func (r *Rewriter) Rewrite(src string) string {
	if len(r.byKey) == 0 {
		return src
	}
	return imageRefRe.ReplaceAllStringFunc(src, func(m string) string {
		sub := imageRefRe.FindStringSubmatch(m)
		dest, title := SplitDest(sub[2])
		t, ok := r.lookup(dest)
		if !ok {
			return m
		}
		target := path.Join(r.stem, t.Filename)
		if title != "" {
			target += " " + title
		}
		return "![" + t.Identifier + "](" + target + ")"
	})
}

// Join rewrites every page and concatenates them, each followed by a blank line.
func (r *Rewriter) Join(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(r.Rewrite(p))
		b.WriteString("\n\n")
	}
	return b.String()
}
