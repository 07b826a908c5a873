package feed

import (
	"github.com/gilliek/go-opml/opml"
)

// LoadOPML reads feed URLs from an OPML subscription file, walking
// nested outlines.
func LoadOPML(path string) ([]string, error) {
	doc, err := opml.NewOPMLFromFile(path)
	if err != nil {
		return nil, err
	}
	var urls []string
	var walk func(outlines []opml.Outline)
	walk = func(outlines []opml.Outline) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				urls = append(urls, o.XMLURL)
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Outlines())
	return urls, nil
}
