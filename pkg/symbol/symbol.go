// Package symbol defines the documented-symbol model shared by the shard
// loader, the index and the query engine.
package symbol

import "fmt"

// Category classifies a documented symbol. It is inferred from the section
// a shard was generated for, never from the symbol text itself.
type Category int

const (
	Unknown Category = iota
	Type
	Function
	Macro
	Member
	Namespace
	File
	Group
	Page
)

var categoryNames = map[Category]string{
	Unknown:   "unknown",
	Type:      "type",
	Function:  "function",
	Macro:     "macro",
	Member:    "member",
	Namespace: "namespace",
	File:      "file",
	Group:     "group",
	Page:      "page",
}

// sectionCategories maps Doxygen search section names to categories.
var sectionCategories = map[string]Category{
	"all":        Unknown,
	"classes":    Type,
	"structs":    Type,
	"unions":     Type,
	"typedefs":   Type,
	"enums":      Type,
	"concepts":   Type,
	"functions":  Function,
	"defines":    Macro,
	"variables":  Member,
	"enumvalues": Member,
	"properties": Member,
	"events":     Member,
	"related":    Member,
	"namespaces": Namespace,
	"files":      File,
	"groups":     Group,
	"modules":    Group,
	"pages":      Page,
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory returns the category with the given name.
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return Unknown, fmt.Errorf("unknown category %q", name)
}

// CategoryForSection maps a search section name (functions, typedefs, ...)
// to its category. Unrecognized sections are Unknown.
func CategoryForSection(section string) Category {
	return sectionCategories[section]
}

// Locator points at a documentation location: the page anchor plus the
// label of the source file the symbol was documented in.
type Locator struct {
	Anchor      string `msgpack:"a" json:"anchor"`
	SourceLabel string `msgpack:"f" json:"source_label"`
}

// Entry is one documented symbol occurrence.
type Entry struct {
	Key         string   `msgpack:"k" json:"key"`
	Name        string   `msgpack:"n" json:"name"`
	DisplayName string   `msgpack:"d" json:"display_name"`
	Locator     Locator  `msgpack:"l" json:"locator"`
	Category    Category `msgpack:"c" json:"category"`
	ShardID     string   `msgpack:"-" json:"shard_id,omitempty"`
}

// Identity is the (DisplayName, Locator) pair used for deduplication.
type Identity struct {
	DisplayName string
	Locator     Locator
}

// Identity returns the deduplication identity of the entry.
func (e Entry) Identity() Identity {
	return Identity{DisplayName: e.DisplayName, Locator: e.Locator}
}

// Validate reports why an entry cannot be indexed, or nil.
func (e Entry) Validate() error {
	switch {
	case e.Key == "":
		return fmt.Errorf("empty key")
	case e.DisplayName == "":
		return fmt.Errorf("empty display name")
	case e.Locator.Anchor == "":
		return fmt.Errorf("empty locator")
	}
	return nil
}
