package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// maxPartSize caps how much of a single zip member is decompressed.
const maxPartSize = 64 << 20

func openZip(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	return zr, nil
}

func sniffOOXML(data []byte) (string, converter) {
	zr, err := openZip(data)
	if err != nil {
		return "", nil
	}
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			return "docx", convertDOCX
		case "ppt/presentation.xml":
			return "pptx", convertPPTX
		case "xl/workbook.xml":
			return "xlsx", convertXLSX
		}
	}
	return "", nil
}

func openPart(zr *zip.Reader, name string) (io.ReadCloser, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, fmt.Errorf("missing part %s: %w", name, err)
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(f, maxPartSize), f}, nil
}

// numberedParts returns members like dir/prefixN.xml ordered by N.
func numberedParts(zr *zip.Reader, dir, prefix string) []string {
	type part struct {
		name string
		n    int
	}
	var parts []part
	for _, f := range zr.File {
		if path.Dir(f.Name) != dir {
			continue
		}
		base := path.Base(f.Name)
		num, ok := strings.CutPrefix(strings.TrimSuffix(base, ".xml"), prefix)
		if !ok || !strings.HasSuffix(base, ".xml") {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		parts = append(parts, part{f.Name, n})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].n < parts[j].n })

	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.name
	}
	return names
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// paragraphs collects the text of each paragraph element (local name para)
// whose runs are textTag elements.
func paragraphs(r io.Reader, para, textTag string, style func(xml.StartElement) string) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    []string
		cur    strings.Builder
		prefix string
		inText bool
		inPara bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case para:
				inPara = true
				cur.Reset()
				prefix = ""
			case textTag:
				inText = true
			case "tab":
				if inPara {
					cur.WriteString("\t")
				}
			case "br":
				if inPara {
					cur.WriteString("\n")
				}
			default:
				if style != nil && inPara {
					if p := style(t); p != "" {
						prefix = p
					}
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case para:
				inPara = false
				if text := strings.TrimSpace(cur.String()); text != "" {
					out = append(out, prefix+text)
				}
			case textTag:
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return out, nil
}

// wordStyle maps Heading1..Heading6 and list paragraphs to markdown prefixes.
func wordStyle(se xml.StartElement) string {
	switch se.Name.Local {
	case "pStyle":
		val := attr(se, "val")
		if n, ok := strings.CutPrefix(val, "Heading"); ok {
			if level, err := strconv.Atoi(n); err == nil && level >= 1 && level <= 6 {
				return strings.Repeat("#", level) + " "
			}
		}
		if val == "Title" {
			return "# "
		}
	case "numPr":
		return "- "
	}
	return ""
}

func convertDOCX(data []byte, _ string) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}
	rc, err := openPart(zr, "word/document.xml")
	if err != nil {
		return "", err
	}
	defer rc.Close()

	paras, err := paragraphs(rc, "p", "t", wordStyle)
	if err != nil {
		return "", err
	}
	return strings.Join(paras, "\n\n"), nil
}

func convertPPTX(data []byte, _ string) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, name := range numberedParts(zr, "ppt/slides", "slide") {
		rc, err := openPart(zr, name)
		if err != nil {
			return "", err
		}
		paras, err := paragraphs(rc, "p", "t", nil)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		if len(paras) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## Slide %d\n\n", i+1)
		for _, p := range paras {
			b.WriteString(p)
			b.WriteString("\n\n")
		}
	}
	return b.String(), nil
}
