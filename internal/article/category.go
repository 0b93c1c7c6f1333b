package article

import "strings"

// Category is the closed set of editorial categories.
//
// None means the item was never classified, Other means a classifier
// returned a label outside the set. Both land in the overflow bucket.
type Category int

const (
	None Category = iota
	Agile
	DevOps
	ArchitectureInfra
	Leadership
	Other
)

// Categories lists the official quota categories in display order.
var Categories = []Category{Agile, DevOps, ArchitectureInfra, Leadership}

// UncategorizedName is the display name of the overflow bucket.
const UncategorizedName = "Uncategorized"

var categoryNames = map[Category]string{
	Agile:             "Agile",
	DevOps:            "DevOps",
	ArchitectureInfra: "Architecture/Infra",
	Leadership:        "Leadership",
}

var categoryLabels = map[Category]string{
	Agile:             "agile",
	DevOps:            "devops",
	ArchitectureInfra: "architecture",
	Leadership:        "leadership",
}

// ParseCategory maps a label to a Category. Empty input is None; any other
// unknown label is Other.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	if s == "" {
		return None
	}
	for c, name := range categoryNames {
		if name == s {
			return c
		}
	}
	return Other
}

// Official reports whether c takes part in quota selection.
func (c Category) Official() bool {
	_, ok := categoryNames[c]
	return ok
}

// String returns the display name; None and Other render as the overflow name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return UncategorizedName
}

// Bucket is the category an item is counted under during bucketing.
func (c Category) Bucket() Category {
	if c.Official() {
		return c
	}
	return Other
}

// Label is the tracker label for the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "uncategorized"
}

func (c Category) MarshalText() ([]byte, error) {
	if c == None {
		return []byte{}, nil
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}
