package markdown

import (
	"reflect"
	"testing"
)

func TestRewriteSimpleReference(t *testing.T) {
	r := NewRewriter("doc", []Target{{Identifier: "img1", Filename: "img1.jpeg"}})
	got := r.Rewrite("![x](img1)")
	if got != "![img1](doc/img1.jpeg)" {
		t.Fatalf("Rewrite() = %q", got)
	}
}

func TestRewriteIsIdentityWithoutMatches(t *testing.T) {
	src := "# Title\n\n![chart](other.png) and ![](https://example.com/a.png)\n"
	r := NewRewriter("doc", []Target{{Identifier: "img1", Filename: "img1.jpeg"}})
	if got := r.Rewrite(src); got != src {
		t.Fatalf("Rewrite() changed text:\n%q\n%q", src, got)
	}
	empty := NewRewriter("doc", nil)
	if got := empty.Rewrite(src); got != src {
		t.Fatalf("empty Rewriter changed text")
	}
}

func TestRewriteMatchesWithAndWithoutExtension(t *testing.T) {
	r := NewRewriter("report", []Target{{Identifier: "img-0.jpeg", Filename: "img-0.jpeg"}})
	src := "![img-0.jpeg](img-0.jpeg)\n![a](img-0)\n![b](img-0.png)"
	want := "![img-0.jpeg](report/img-0.jpeg)\n![img-0.jpeg](report/img-0.jpeg)\n![img-0.jpeg](report/img-0.jpeg)"
	if got := r.Rewrite(src); got != want {
		t.Fatalf("Rewrite() =\n%q\nwant\n%q", got, want)
	}
}

func TestRewriteEscapesMetacharacters(t *testing.T) {
	r := NewRewriter("doc", []Target{{Identifier: "a.b*c", Filename: "a.b*c.jpeg"}})
	if got := r.Rewrite("![](aXb*c)"); got != "![](aXb*c)" {
		t.Fatalf("dot in identifier matched any character: %q", got)
	}
	if got := r.Rewrite("![](a.b*c)"); got != "![a.b*c](doc/a.b*c.jpeg)" {
		t.Fatalf("Rewrite() = %q", got)
	}
}

func TestRewriteDoesNotChain(t *testing.T) {
	r := NewRewriter("doc", []Target{
		{Identifier: "a", Filename: "a.jpeg"},
		{Identifier: "doc/a.jpeg", Filename: "x.jpeg"},
	})
	if got := r.Rewrite("![](a)"); got != "![a](doc/a.jpeg)" {
		t.Fatalf("Rewrite() = %q", got)
	}
}

func TestJoinAddsBlankLineAfterEachPage(t *testing.T) {
	r := NewRewriter("doc", nil)
	if got := r.Join([]string{"one", "two"}); got != "one\n\ntwo\n\n" {
		t.Fatalf("Join() = %q", got)
	}
}

func TestCollectRefs(t *testing.T) {
	got := CollectRefs("![a](img-0.jpeg) text ![](img-1)\n![b]( img-0.jpeg )![c]()")
	want := []string{"img-0.jpeg", "img-1", "img-0.jpeg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CollectRefs() = %v, want %v", got, want)
	}
}

func TestAuditClassifiesDestinations(t *testing.T) {
	src := []byte("![a](doc/a.jpeg)\n\n![b](https://example.com/b.png)\n\n![c](c.png)\n")
	rep := Audit("doc", src)
	if rep.Total != 3 || rep.Local != 1 || rep.External != 1 {
		t.Fatalf("Audit() = %+v", rep)
	}
	if len(rep.Dangling) != 1 || rep.Dangling[0] != "c.png" {
		t.Fatalf("Dangling = %v", rep.Dangling)
	}
}

func TestRewriteAcceptsPaddedDestinations(t *testing.T) {
	src := "![a]( img1 ) and ![b](  img1.png\t)"
	refs := CollectRefs(src)
	if !reflect.DeepEqual(refs, []string{"img1", "img1.png"}) {
		t.Fatalf("CollectRefs() = %v", refs)
	}
	r := NewRewriter("doc", []Target{{Identifier: "img1", Filename: "img1.jpeg"}})
	want := "![img1](doc/img1.jpeg) and ![img1](doc/img1.jpeg)"
	if got := r.Rewrite(src); got != want {
		t.Fatalf("Rewrite() = %q, want %q", got, want)
	}
}

func TestTitleIsNotPartOfIdentifier(t *testing.T) {
	src := `![b](img2 "Figure 2") ![c](<img3> 'x')`
	refs := CollectRefs(src)
	if !reflect.DeepEqual(refs, []string{"img2", "img3"}) {
		t.Fatalf("CollectRefs() = %v", refs)
	}
	r := NewRewriter("doc", []Target{
		{Identifier: "img2", Filename: "img2.jpeg"},
		{Identifier: "img3", Filename: "img3.jpeg"},
	})
	want := `![img2](doc/img2.jpeg "Figure 2") ![img3](doc/img3.jpeg 'x')`
	if got := r.Rewrite(src); got != want {
		t.Fatalf("Rewrite() = %q, want %q", got, want)
	}
}

func TestSplitDest(t *testing.T) {
	cases := []struct {
		raw, dest, title string
	}{
		{"img", "img", ""},
		{"  img.png  ", "img.png", ""},
		{`img "t"`, "img", `"t"`},
		{"<a b.png>", "a b.png", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		dest, title := SplitDest(c.raw)
		if dest != c.dest || title != c.title {
			t.Fatalf("SplitDest(%q) = %q, %q; want %q, %q", c.raw, dest, title, c.dest, c.title)
		}
	}
}
