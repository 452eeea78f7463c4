package seo

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leaftok/leaftok-site/internal/config"
	"github.com/leaftok/leaftok-site/internal/content"
)

func testGenerator() *Generator {
	return New(config.SiteConfig{
		Name:        "LeafTok",
		URL:         "https://leaftok.app/",
		Description: "AI-powered reading app that transforms books into intelligent, swipeable cards.",
		AuthorName:  "Iago Cavalcante",
		AuthorURL:   "https://iagocavalcante.com",
		Twitter:     "@leaftok",
		IOSURL:      "https://apps.apple.com/app",
		AndroidURL:  "https://play.google.com/app",
		Locales:     []string{"en", "pt-BR"},
	})
}

func testBook() content.Book {
	return content.Book{
		Slug:          "atomic-habits",
		Title:         "Atomic Habits",
		Author:        content.AuthorRef{Slug: "james-clear", Name: "James Clear"},
		Category:      content.CategoryRef{Slug: "self-improvement", Name: "Self Improvement"},
		Description:   "Tiny changes, remarkable results.",
		Summary:       "Habits compound.",
		ISBN:          "9780735211292",
		PublishedYear: 2018,
		Rating:        &content.Rating{Value: 4.8, Count: 120},
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	got := Truncate(strings.Repeat("a", 200), 160)
	if len(got) != 160 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate should keep limit with ellipsis, got len %d", len(got))
	}
	if got := Truncate("hello world again", 9); got != "hello..." {
		t.Fatalf("trailing space should be trimmed, got %q", got)
	}
}

func TestUniqueTitle(t *testing.T) {
	cases := map[PageType]string{
		PageHome:          "Habits",
		PageBookSummary:   "Habits Summary & Key Takeaways",
		PageCategoryHub:   "Best Habits Books - Summaries & Reviews",
		PageAuthorProfile: "Habits - Books & Biography",
		PageTopicHub:      "Habits Books - Best Reads & Summaries",
		PageReadingList:   "Habits Reading List - Curated Book Collection",
		PageGuide:         "Habits - Complete Guide",
		PageLegal:         "Habits",
	}
	for pageType, want := range cases {
		if got := UniqueTitle("Habits", pageType, ""); got != want {
			t.Fatalf("%s: got %q want %q", pageType, got, want)
		}
	}
	if got := UniqueTitle("Habits", PageBookSummary, "LeafTok"); got != "Habits Summary & Key Takeaways | LeafTok" {
		t.Fatalf("unexpected context title %q", got)
	}
}

func TestBookMetadata(t *testing.T) {
	g := testGenerator()
	m := g.BookMetadata(testBook(), content.Category{Slug: "self-improvement", Name: "Self Improvement"})

	if m.Canonical != "https://leaftok.app/books/self-improvement/atomic-habits/" {
		t.Fatalf("unexpected canonical %s", m.Canonical)
	}
	if m.Title != "Atomic Habits Summary & Key Takeaways" {
		t.Fatalf("unexpected title %s", m.Title)
	}
	if len(m.Description) > DescriptionLimit || len(m.Description) <= 50 {
		t.Fatalf("description length out of range: %d", len(m.Description))
	}
	if m.OpenGraph.Type != "article" || m.Twitter.Card != "summary_large_image" {
		t.Fatalf("unexpected social cards %+v %+v", m.OpenGraph, m.Twitter)
	}
	want := []Alternate{
		{Hreflang: "en", URL: m.Canonical},
		{Hreflang: "pt-BR", URL: m.Canonical + "?lang=pt-BR"},
		{Hreflang: "x-default", URL: m.Canonical},
	}
	if diff := cmp.Diff(want, m.Alternates); diff != "" {
		t.Fatalf("alternates mismatch (-want +got):\n%s", diff)
	}
	if g.PageTitle(m) != "Atomic Habits Summary & Key Takeaways | LeafTok" {
		t.Fatalf("unexpected page title %s", g.PageTitle(m))
	}
}

func TestNotFoundIsNoIndex(t *testing.T) {
	if !testGenerator().NotFoundMetadata().NoIndex {
		t.Fatalf("404 metadata should be noindex")
	}
}

func TestBookSchemaOptionalFields(t *testing.T) {
	g := testGenerator()
	s := g.BookSchema(testBook(), "Self Improvement")
	if s.Type() != "Book" || s["@context"] != "https://schema.org" {
		t.Fatalf("unexpected schema header %v", s)
	}
	if s["isbn"] != "9780735211292" || s["datePublished"] != "2018" {
		t.Fatalf("optional fields missing: %v", s)
	}
	rating := s["aggregateRating"].(map[string]any)
	if rating["ratingValue"] != "4.8" || rating["ratingCount"] != "120" {
		t.Fatalf("unexpected rating %v", rating)
	}
	if _, ok := s["numberOfPages"]; ok {
		t.Fatalf("page count should be omitted when zero")
	}
	if _, ok := s["image"]; ok {
		t.Fatalf("image should be omitted when empty")
	}
}

func TestBreadcrumbSchemaPositions(t *testing.T) {
	g := testGenerator()
	crumbs := BookBreadcrumbs("business", "Business", "Zero to One", "zero-to-one")
	s := g.BreadcrumbSchema(crumbs)

	raw, err := s.JSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Items []struct {
			Position int    `json:"position"`
			Name     string `json:"name"`
			Item     string `json:"item"`
		} `json:"itemListElement"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Items) != 4 {
		t.Fatalf("expected 4 crumbs, got %d", len(decoded.Items))
	}
	last := decoded.Items[3]
	if last.Position != 4 || last.Item != "https://leaftok.app/books/business/zero-to-one/" {
		t.Fatalf("unexpected last crumb %+v", last)
	}
}

func TestPersonSchemaSameAs(t *testing.T) {
	s := testGenerator().PersonSchema(content.Author{
		Slug:        "james-clear",
		Name:        "James Clear",
		SocialLinks: &content.SocialLinks{Website: "https://jamesclear.com", Twitter: "@james_clear"},
	})
	want := []string{"https://jamesclear.com", "https://twitter.com/james_clear"}
	if diff := cmp.Diff(want, s["sameAs"]); diff != "" {
		t.Fatalf("sameAs mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaJSONEscapesScriptClose(t *testing.T) {
	s := testGenerator().FAQPageSchema([]content.FAQ{{Question: "</script>", Answer: "ok"}})
	raw, err := s.JSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(raw, "</script>") {
		t.Fatalf("schema json must escape closing script tags: %s", raw)
	}
}

func TestItemListAndCollection(t *testing.T) {
	g := testGenerator()
	list := g.ItemListSchema("Business Books", []ListItem{{Name: "A", URL: "/books/business/a/", Position: 1}})
	if list["numberOfItems"] != 1 {
		t.Fatalf("unexpected count %v", list["numberOfItems"])
	}
	page := g.CollectionPageSchema("Business", "desc", "https://example.com/x/", 3)
	if page["url"] != "https://example.com/x/" {
		t.Fatalf("absolute urls should be kept, got %v", page["url"])
	}
}
