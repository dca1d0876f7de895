package model

// CitationMap maps citation URLs to the questions that referenced them.
// Keys are the exact URL strings the research API returned, with no
// normalization of trailing slashes, default ports, or query ordering.
// Two URLs that differ only in a trailing slash are distinct entries;
// reference counts and prioritization depend on exact-match semantics.
type CitationMap struct {
	refs  map[string][]QuestionRef
	order []string // first-seen insertion order of URLs
}

// NewCitationMap returns an empty citation map.
func NewCitationMap() *CitationMap {
	return &CitationMap{refs: make(map[string][]QuestionRef)}
}

// Add appends a back-reference for url, registering the URL on first sight.
func (m *CitationMap) Add(url string, ref QuestionRef) {
	if _, ok := m.refs[url]; !ok {
		m.order = append(m.order, url)
	}
	m.refs[url] = append(m.refs[url], ref)
}

// Refs returns the back-references recorded for url, in the order the
// questions were folded in (lowest question number first).
func (m *CitationMap) Refs(url string) []QuestionRef {
	return m.refs[url]
}

// Has reports whether url is present.
func (m *CitationMap) Has(url string) bool {
	_, ok := m.refs[url]
	return ok
}

// Len returns the number of distinct URLs.
func (m *CitationMap) Len() int {
	return len(m.refs)
}

// URLs returns all URLs in first-seen order. The returned slice is shared;
// callers must not mutate it.
func (m *CitationMap) URLs() []string {
	return m.order
}

// PrioritizedCitation is one entry of the ranked subset selected for
// processing. Rank is the 1-based position after sorting and doubles as
// the citation_id on the processing result.
type PrioritizedCitation struct {
	Rank int           `json:"rank"`
	URL  string        `json:"url"`
	Refs []QuestionRef `json:"refs"`
}

// RefCount returns the number of distinct questions that cited this URL.
func (c PrioritizedCitation) RefCount() int {
	return len(c.Refs)
}
