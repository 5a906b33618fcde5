package book

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// epubContainer mirrors META-INF/container.xml.
type epubContainer struct {
	Rootfiles []epubRootfile `xml:"rootfiles>rootfile"`
}

type epubRootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// opfPackage mirrors the parts of the EPUB package document the loader
// needs: Dublin Core metadata, the manifest, and the reading order.
type opfPackage struct {
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Titles    []string  `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators  []string  `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages []string  `xml:"http://purl.org/dc/elements/1.1/ language"`
	Metas     []opfMeta `xml:"meta"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	Itemrefs []opfItemref `xml:"itemref"`
}

type opfItemref struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// LoadEPUB reads an EPUB archive and returns its chapters in spine order.
// Navigation documents, non-linear spine entries (covers, title pages),
// and documents with no extractable text are skipped.
func LoadEPUB(name string) (*Book, error) {
	reader, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer reader.Close()

	entries := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		entries[path.Clean(f.Name)] = f
	}

	rootPath, err := packagePath(entries)
	if err != nil {
		return nil, err
	}

	raw, err := readEntry(entries, rootPath)
	if err != nil {
		return nil, fmt.Errorf("read package document: %w", err)
	}
	var pkg opfPackage
	if err := xml.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("parse package document: %w", err)
	}

	items := make(map[string]opfItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		items[item.ID] = item
	}

	bk := &Book{
		Title:    firstNonEmpty(pkg.Metadata.Titles),
		Author:   firstNonEmpty(pkg.Metadata.Creators),
		Language: firstNonEmpty(pkg.Metadata.Languages),
	}
	if bk.Title == "" {
		bk.Title = fallbackTitle(name)
	}
	bk.Series, bk.SeriesIndex = seriesMetadata(pkg.Metadata.Metas)

	opfDir := path.Dir(rootPath)
	for _, ref := range pkg.Spine.Itemrefs {
		if strings.EqualFold(strings.TrimSpace(ref.Linear), "no") {
			continue
		}
		item, ok := items[ref.IDRef]
		if !ok || !isDocumentMediaType(item.MediaType) {
			continue
		}
		if strings.Contains(item.Properties, "nav") {
			continue
		}
		raw, err := readEntry(entries, resolveHref(opfDir, item.Href))
		if err != nil {
			return nil, fmt.Errorf("read chapter document %s: %w", item.Href, err)
		}
		title, text := extractChapterText(raw)
		text = normalizeText(text)
		if text == "" {
			continue
		}
		if title == "" {
			title = fmt.Sprintf("Chapter %d", len(bk.Chapters)+1)
		}
		bk.Chapters = append(bk.Chapters, Chapter{Title: title, Text: text})
	}
	if len(bk.Chapters) == 0 {
		return nil, errNoChapters
	}
	return bk, nil
}

// seriesMetadata reads calibre-style collection tags. EPUB3 expresses the
// same thing via belongs-to-collection refines chains, but calibre writes
// the legacy meta pair into both formats, so this covers most shelved books.
func seriesMetadata(metas []opfMeta) (string, float64) {
	var series string
	var index float64
	for _, meta := range metas {
		switch strings.ToLower(strings.TrimSpace(meta.Name)) {
		case "calibre:series":
			series = strings.TrimSpace(meta.Content)
		case "calibre:series_index":
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(meta.Content), 64); err == nil {
				index = parsed
			}
		}
	}
	if series == "" {
		return "", 0
	}
	return series, index
}

func packagePath(entries map[string]*zip.File) (string, error) {
	raw, err := readEntry(entries, "META-INF/container.xml")
	if err != nil {
		return "", fmt.Errorf("read epub container: %w", err)
	}
	var container epubContainer
	if err := xml.Unmarshal(raw, &container); err != nil {
		return "", fmt.Errorf("parse epub container: %w", err)
	}
	for _, rf := range container.Rootfiles {
		if rf.MediaType == "" || rf.MediaType == "application/oebps-package+xml" {
			if rf.FullPath != "" {
				return rf.FullPath, nil
			}
		}
	}
	return "", fmt.Errorf("epub container lists no package document")
}

func readEntry(entries map[string]*zip.File, name string) ([]byte, error) {
	f, ok := entries[path.Clean(name)]
	if !ok {
		return nil, fmt.Errorf("missing archive entry %q", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// resolveHref joins a manifest href onto the package document's directory,
// decoding any URL escaping in the href first.
func resolveHref(opfDir, href string) string {
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if opfDir == "." || opfDir == "" {
		return href
	}
	return path.Join(opfDir, href)
}

func isDocumentMediaType(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/xhtml+xml", "text/html":
		return true
	}
	return false
}

// extractChapterText walks a chapter document and returns the first
// heading along with the flattened body text. Block elements become
// paragraph breaks; scripts, styles, and navigation subtrees are dropped.
func extractChapterText(raw []byte) (title, text string) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head", "nav", "template":
				return
			case "h1", "h2", "h3":
				if title == "" {
					title = collapseSpace(nodeText(n))
				}
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6",
				"section", "article", "blockquote", "figcaption", "tr", "dt", "dd", "hr":
				b.WriteString("\n\n")
			}
		}
	}
	walk(doc)
	return title, b.String()
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
