package convert

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const blockSelector = "h1,h2,h3,h4,h5,h6,p,li,pre,table,blockquote"

func convertHTML(data []byte, filename string) (string, error) {
	html, err := decodeText(data)
	if err != nil {
		return "", err
	}

	// Readability needs a base URL for resolving relative links.
	base := &url.URL{Scheme: "https", Host: "drive.invalid", Path: "/" + url.PathEscape(filename)}

	var title, content string
	parser := readability.NewParser()
	if article, err := parser.Parse(strings.NewReader(html), base); err == nil {
		title = normalizeText(article.Title)
		content = article.Content
	}

	md, err := htmlToMarkdown(content)
	if err != nil {
		return "", err
	}
	if md == "" {
		// Readability gives up on short or list-only pages.
		md, err = htmlToMarkdown(html)
		if err != nil {
			return "", err
		}
	}
	if md == "" {
		return "", nil
	}
	if title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}
	return md, nil
}

func htmlToMarkdown(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script,style,noscript").Remove()

	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are emitted by their outermost ancestor.
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		if block := renderBlock(s); block != "" {
			blocks = append(blocks, block)
		}
	})

	if len(blocks) == 0 {
		return normalizeText(doc.Find("body").Text()), nil
	}
	return strings.Join(blocks, "\n\n"), nil
}

func renderBlock(s *goquery.Selection) string {
	tag := goquery.NodeName(s)
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := normalizeText(s.Text())
		if text == "" {
			return ""
		}
		return strings.Repeat("#", int(tag[1]-'0')) + " " + text
	case "li":
		text := normalizeText(s.Text())
		if text == "" {
			return ""
		}
		return "- " + text
	case "pre":
		code := strings.TrimSpace(s.Text())
		if code == "" {
			return ""
		}
		lang, _ := s.Find("code").Attr("class")
		return strings.TrimRight(fenced(strings.TrimPrefix(lang, "language-"), code), "\n")
	case "table":
		return extractTable(s)
	case "blockquote":
		text := normalizeText(s.Text())
		if text == "" {
			return ""
		}
		return "> " + text
	default:
		return normalizeText(s.Text())
	}
}

func extractTable(s *goquery.Selection) string {
	var header []string
	var rows [][]string

	s.Find("thead tr th").Each(func(_ int, th *goquery.Selection) {
		header = append(header, normalizeText(th.Text()))
	})

	trs := s.Find("tr")
	if len(header) == 0 && trs.Length() > 0 {
		trs.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			header = append(header, normalizeText(cell.Text()))
		})
		trs = trs.Slice(1, trs.Length())
	}

	trs.Each(func(_ int, tr *goquery.Selection) {
		if tr.ParentFiltered("thead").Length() > 0 {
			return
		}
		var row []string
		tr.Find("td,th").Each(func(_ int, td *goquery.Selection) {
			row = append(row, normalizeText(td.Text()))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})

	if len(header) == 0 {
		return ""
	}
	return strings.TrimRight(markdownTable(header, rows), "\n")
}

// normalizeText collapses a block's lines into one line of text.
func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
