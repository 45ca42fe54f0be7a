package shard

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/bastiangx/docsearch/pkg/symbol"
)

// scopeSeparator splits "decl:&#160;file" once entities are unescaped.
const scopeSeparator = ":\u00a0"

// SectionIndex is the content of a Doxygen searchdata.js file.
type SectionIndex struct {
	// Names maps section number to section name ("functions", "all", ...).
	Names map[int]string
	// Content maps section number to the string of first characters that
	// have a shard file, in file-number order.
	Content map[int][]rune
}

// ParseSectionIndex decodes searchdata.js.
func ParseSectionIndex(data []byte) (*SectionIndex, error) {
	names, err := objectVar(data, "indexSectionNames")
	if err != nil {
		return nil, err
	}
	content, err := objectVar(data, "indexSectionsWithContent")
	if err != nil {
		return nil, err
	}
	idx := &SectionIndex{
		Names:   make(map[int]string, len(names)),
		Content: make(map[int][]rune, len(content)),
	}
	for k, v := range names {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("indexSectionNames: bad section number %q", k)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("indexSectionNames[%d]: not a string", n)
		}
		idx.Names[n] = s
	}
	for k, v := range content {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("indexSectionsWithContent: bad section number %q", k)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("indexSectionsWithContent[%d]: not a string", n)
		}
		idx.Content[n] = []rune(s)
	}
	return idx, nil
}

// Partition returns the first character served by file number fileNo of a
// section, or "" when the section index does not cover it.
func (si *SectionIndex) Partition(section string, fileNo int) string {
	for n, name := range si.Names {
		if name != section {
			continue
		}
		chars := si.Content[n]
		if fileNo < 0 || fileNo >= len(chars) {
			return ""
		}
		return strings.ToLower(string(chars[fileNo]))
	}
	return ""
}

func objectVar(data []byte, name string) (map[string]any, error) {
	v, err := varLiteral(data, name)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: not an object", name)
	}
	return obj, nil
}

func varLiteral(data []byte, name string) (any, error) {
	src := string(data)
	at := strings.Index(src, name)
	if at < 0 {
		return nil, fmt.Errorf("%s not found", name)
	}
	eq := strings.IndexByte(src[at:], '=')
	if eq < 0 {
		return nil, fmt.Errorf("%s: missing assignment", name)
	}
	p := &literalParser{src: src, pos: at + eq + 1}
	v, err := p.value()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// DecodeDoxygen decodes one Doxygen searchData shard file. Records that
// cannot be interpreted are reported and skipped; only a file that is not a
// searchData array at all is an error.
func DecodeDoxygen(id, section string, data []byte) (*Shard, []error, error) {
	v, err := varLiteral(data, "searchData")
	if err != nil {
		return nil, nil, err
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("searchData: not an array")
	}

	s := &Shard{
		ID:       id,
		Section:  section,
		Category: symbol.CategoryForSection(section),
		Records:  make([]Record, 0, len(rows)),
	}
	var problems []error
	for i, row := range rows {
		rec, err := doxygenRecord(row)
		if err != nil {
			problems = append(problems, &MalformedRecordError{ShardID: id, Index: i, Reason: err.Error()})
			continue
		}
		s.Records = append(s.Records, rec)
	}
	return s, problems, nil
}

// doxygenRecord interprets ['mangled_key_N',['name',[url,flag,scope],...]].
// Entries that cannot be read are returned with empty fields so validation
// reports them individually.
func doxygenRecord(row any) (Record, error) {
	fields, ok := row.([]any)
	if !ok || len(fields) < 2 {
		return Record{}, fmt.Errorf("not a [key, results] pair")
	}
	mangled, ok := fields[0].(string)
	if !ok {
		return Record{}, fmt.Errorf("key is not a string")
	}
	results, ok := fields[1].([]any)
	if !ok || len(results) < 1 {
		return Record{}, fmt.Errorf("results are not a list")
	}
	name, _ := results[0].(string)
	name = html.UnescapeString(name)

	rec := Record{Key: DemangleKey(mangled)}
	for _, r := range results[1:] {
		rec.Entries = append(rec.Entries, doxygenEntry(name, r))
	}
	return rec, nil
}

func doxygenEntry(name string, result any) symbol.Entry {
	e := symbol.Entry{Name: name, DisplayName: name}
	parts, ok := result.([]any)
	if !ok || len(parts) == 0 {
		e.DisplayName = ""
		return e
	}
	if url, ok := parts[0].(string); ok {
		e.Locator.Anchor = strings.TrimPrefix(url, "../")
	}
	if len(parts) >= 3 {
		if scope, ok := parts[2].(string); ok {
			scope = html.UnescapeString(scope)
			if at := strings.LastIndex(scope, scopeSeparator); at >= 0 {
				e.DisplayName = strings.TrimSpace(scope[:at])
				e.Locator.SourceLabel = strings.TrimSpace(scope[at+len(scopeSeparator):])
			} else {
				e.Locator.SourceLabel = strings.TrimSpace(scope)
			}
		}
	}
	if e.DisplayName == "" {
		e.DisplayName = name
	}
	return e
}

// DemangleKey turns a Doxygen search key such as "cgroup_5ffree_206" into
// the normalized key "cgroup_free": the trailing serial is dropped and _XX
// hex escapes are decoded.
func DemangleKey(mangled string) string {
	if at := strings.LastIndexByte(mangled, '_'); at > 0 {
		if _, err := strconv.Atoi(mangled[at+1:]); err == nil {
			mangled = mangled[:at]
		}
	}
	buf := make([]byte, 0, len(mangled))
	for i := 0; i < len(mangled); i++ {
		c := mangled[i]
		if c == '_' && i+2 < len(mangled) && isHex(mangled[i+1]) && isHex(mangled[i+2]) {
			b, _ := strconv.ParseUint(mangled[i+1:i+3], 16, 8)
			buf = append(buf, byte(b))
			i += 2
			continue
		}
		buf = append(buf, c)
	}
	return symbol.Normalize(string(buf))
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
