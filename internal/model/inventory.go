package model

import "fmt"

// ContainerKind distinguishes the two container variants.
type ContainerKind string

const (
	// KindSet is a LEGO set instance owned by the user.
	KindSet ContainerKind = "set"
	// KindPartList is a user-defined custom part collection.
	KindPartList ContainerKind = "partlist"
)

// ParseContainerKind accepts the singular kind or its plural path segment.
func ParseContainerKind(s string) (ContainerKind, error) {
	switch s {
	case "set", "sets":
		return KindSet, nil
	case "partlist", "partlists":
		return KindPartList, nil
	}
	return "", fmt.Errorf("unknown container kind %q", s)
}

// PathSegment returns the remote collection segment for the kind.
func (k ContainerKind) PathSegment() string {
	if k == KindPartList {
		return "partlists"
	}
	return "sets"
}

// Valid reports whether k is a known kind.
func (k ContainerKind) Valid() bool {
	return k == KindSet || k == KindPartList
}

// Container is a named collection of parts listed from the remote inventory.
// Year and ImageURL are only populated for sets; Private and Buildable only
// for part-lists.
type Container struct {
	Kind      ContainerKind `json:"kind"`
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	NumParts  int           `json:"num_parts"`
	Quantity  int           `json:"quantity,omitempty"`
	Year      int           `json:"year,omitempty"`
	ImageURL  string        `json:"image_url,omitempty"`
	Private   bool          `json:"is_private,omitempty"`
	Buildable bool          `json:"is_buildable,omitempty"`
}

// DefaultColor is used when the upstream record carries no color.
const DefaultColor = "Various"

// InventoryItem is the single normalized shape for a part in search results,
// set contents and part-list contents. Quantity is present only when the
// item was fetched from a specific container.
type InventoryItem struct {
	PartID       string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	ImageURL     string `json:"image_url"`
	CanonicalURL string `json:"url"`
	Quantity     *int   `json:"quantity,omitempty"`
}

// SortOrder names a supported search ordering.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortName      SortOrder = "name"
	SortPartNum   SortOrder = "partNum"
	SortPartCount SortOrder = "partCount"
	SortYear      SortOrder = "year"
)

// SearchFilters narrows a part search. When PartList is set the query and
// the other filters are ignored and the part-list contents are returned.
type SearchFilters struct {
	Color    string    `json:"color,omitempty"`
	Category string    `json:"category,omitempty"`
	Year     string    `json:"year,omitempty"`
	SortBy   SortOrder `json:"sortBy,omitempty"`
	PartList string    `json:"partlist,omitempty"`
}

// MoveRequest relocates a quantity of one part between two containers of the same kind.
type MoveRequest struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	PartID   string        `json:"part"`
	Quantity int           `json:"quantity"`
	Kind     ContainerKind `json:"kind"`
}
