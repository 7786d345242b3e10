package ingest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Entry is one parsed feed item, format independent
type Entry struct {
	Title     string
	Link      string
	GUID      string
	ID        string
	Published string // raw date text as it appeared in the feed
	Content   string
}

// ErrUnknownFormat is returned for documents that are neither RSS nor Atom
var ErrUnknownFormat = errors.New("unrecognised feed format")

type rssDoc struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

// rdfDoc is RSS 1.0, where items sit beside the channel
type rdfDoc struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"http://purl.org/dc/elements/1.1/ date"`
	Description string `xml:"description"`
	Encoded     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
}

type atomDoc struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	ID        string     `xml:"id"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false
	return dec
}

// ParseFeed decodes an RSS 2.0, RSS 1.0 or Atom document
func ParseFeed(data []byte) ([]Entry, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, err
	}

	switch root {
	case "rss":
		var doc rssDoc
		if err := newDecoder(data).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode rss: %w", err)
		}
		return rssEntries(doc.Channel.Items), nil
	case "RDF":
		var doc rdfDoc
		if err := newDecoder(data).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode rdf: %w", err)
		}
		return rssEntries(doc.Items), nil
	case "feed":
		var doc atomDoc
		if err := newDecoder(data).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode atom: %w", err)
		}
		return atomEntries(doc.Entries), nil
	default:
		return nil, fmt.Errorf("%w: <%s>", ErrUnknownFormat, root)
	}
}

func rootElement(data []byte) (string, error) {
	dec := newDecoder(data)
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("failed to read feed: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func rssEntries(items []rssItem) []Entry {
	out := make([]Entry, len(items))
	for i, it := range items {
		content := it.Encoded
		if content == "" {
			content = it.Description
		}
		published := it.PubDate
		if published == "" {
			published = it.Date
		}
		out[i] = Entry{
			Title:     strings.TrimSpace(it.Title),
			Link:      strings.TrimSpace(it.Link),
			GUID:      strings.TrimSpace(it.GUID),
			Published: strings.TrimSpace(published),
			Content:   content,
		}
	}
	return out
}

func atomEntries(entries []atomEntry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		content := e.Content
		if content == "" {
			content = e.Summary
		}
		published := e.Published
		if published == "" {
			published = e.Updated
		}
		out[i] = Entry{
			Title:     strings.TrimSpace(e.Title),
			Link:      atomLinkHref(e.Links),
			ID:        strings.TrimSpace(e.ID),
			Published: strings.TrimSpace(published),
			Content:   content,
		}
	}
	return out
}

// atomLinkHref prefers the alternate link, then the first one
func atomLinkHref(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

// Snippet strips markup from item content and collapses whitespace
func Snippet(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return strings.Join(strings.Fields(content), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return strings.Join(strings.Fields(content), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseDate reads a feed date, falling back to now when absent or invalid
func ParseDate(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now
}

// ItemGUID picks the dedupe key: guid, then id, then link, then title and date
func ItemGUID(e Entry, title string) string {
	switch {
	case e.GUID != "":
		return e.GUID
	case e.ID != "":
		return e.ID
	case e.Link != "":
		return e.Link
	default:
		return title + "__" + e.Published
	}
}
