package rebrickable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"brickvault-api/internal/model"
)

// Source identifies which endpoint a raw part record came from. Each
// endpoint nests the part differently.
type Source int

const (
	// SourceCatalog is a flat catalog record: {part_num, name, part_img_url, color?}.
	SourceCatalog Source = iota
	// SourceSet is a set inventory row: {part: {...}, color, quantity}.
	SourceSet
	// SourcePartList is a part-list row: {part: {...}, color, quantity}.
	SourcePartList
)

func (s Source) String() string {
	switch s {
	case SourceCatalog:
		return "catalog"
	case SourceSet:
		return "set"
	case SourcePartList:
		return "partlist"
	}
	return "source(" + strconv.Itoa(int(s)) + ")"
}

// Ordering maps a sort order to the upstream "ordering" parameter. Relevance
// and unknown values map to "", meaning no ordering parameter.
func Ordering(s model.SortOrder) string {
	switch s {
	case model.SortName:
		return "name"
	case model.SortPartNum:
		return "part_num"
	case model.SortPartCount:
		return "num_parts"
	case model.SortYear:
		return "year_from"
	}
	return ""
}

// color decodes either a plain string or an object carrying a name.
type color string

func (c *color) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = color(s)
	case data[0] == '{':
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*c = color(obj.Name)
	default:
		// numeric color ids carry no display name
		*c = ""
	}
	return nil
}

// flexID decodes a JSON string or number as a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type partRecord struct {
	PartNum string `json:"part_num"`
	Name    string `json:"name"`
	ImgURL  string `json:"part_img_url"`
	Color   color  `json:"color"`
}

type containerRow struct {
	Part     *partRecord `json:"part"`
	Color    color       `json:"color"`
	Quantity *int        `json:"quantity"`

	// some rows arrive flat
	partRecord
}

// CanonicalURL returns the public page of a part.
func CanonicalURL(siteURL, partID string) string {
	return siteURL + "/parts/" + partID + "/"
}

func item(p partRecord, c color, siteURL string) model.InventoryItem {
	name := string(c)
	if name == "" {
		name = string(p.Color)
	}
	if name == "" {
		name = model.DefaultColor
	}
	return model.InventoryItem{
		PartID:       p.PartNum,
		Name:         p.Name,
		Color:        name,
		ImageURL:     p.ImgURL,
		CanonicalURL: CanonicalURL(siteURL, p.PartNum),
	}
}

func fromCatalog(raw json.RawMessage, siteURL string) (model.InventoryItem, error) {
	var p partRecord
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.InventoryItem{}, err
	}
	return item(p, "", siteURL), nil
}

func fromContainerRow(raw json.RawMessage, siteURL string) (model.InventoryItem, error) {
	var row containerRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.InventoryItem{}, err
	}
	p := row.partRecord
	if row.Part != nil {
		p = *row.Part
	}
	it := item(p, row.Color, siteURL)
	qty := 0
	if row.Quantity != nil {
		qty = *row.Quantity
	}
	it.Quantity = &qty
	return it, nil
}

func fromSet(raw json.RawMessage, siteURL string) (model.InventoryItem, error) {
	return fromContainerRow(raw, siteURL)
}

func fromPartList(raw json.RawMessage, siteURL string) (model.InventoryItem, error) {
	return fromContainerRow(raw, siteURL)
}

// NormalizeItem maps one raw record from src into the shared item shape.
// Quantity is only set for container sources.
func NormalizeItem(src Source, raw json.RawMessage, siteURL string) (model.InventoryItem, error) {
	switch src {
	case SourceCatalog:
		return fromCatalog(raw, siteURL)
	case SourceSet:
		return fromSet(raw, siteURL)
	case SourcePartList:
		return fromPartList(raw, siteURL)
	}
	return model.InventoryItem{}, fmt.Errorf("unknown source %s", src)
}

func normalizeItems(src Source, raw []json.RawMessage, siteURL string) ([]model.InventoryItem, error) {
	out := make([]model.InventoryItem, 0, len(raw))
	for i, r := range raw {
		it, err := NormalizeItem(src, r, siteURL)
		if err != nil {
			return nil, fmt.Errorf("normalize %s result %d: %w", src, i, err)
		}
		out = append(out, it)
	}
	return out, nil
}

type setRecord struct {
	SetNum   string `json:"set_num"`
	Name     string `json:"name"`
	Year     int    `json:"year"`
	NumParts int    `json:"num_parts"`
	ImgURL   string `json:"set_img_url"`
}

type setRow struct {
	Set      *setRecord `json:"set"`
	Quantity int        `json:"quantity"`

	setRecord
}

type partListRecord struct {
	ID        flexID `json:"id"`
	Name      string `json:"name"`
	NumParts  int    `json:"num_parts"`
	Private   bool   `json:"is_private"`
	Buildable bool   `json:"is_buildable"`
}

// NormalizeContainer maps one raw set or part-list record.
func NormalizeContainer(kind model.ContainerKind, raw json.RawMessage) (model.Container, error) {
	switch kind {
	case model.KindSet:
		var row setRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return model.Container{}, err
		}
		s := row.setRecord
		if row.Set != nil {
			s = *row.Set
		}
		return model.Container{
			Kind:     model.KindSet,
			ID:       s.SetNum,
			Name:     s.Name,
			NumParts: s.NumParts,
			Quantity: row.Quantity,
			Year:     s.Year,
			ImageURL: s.ImgURL,
		}, nil
	case model.KindPartList:
		var pl partListRecord
		if err := json.Unmarshal(raw, &pl); err != nil {
			return model.Container{}, err
		}
		return model.Container{
			Kind:      model.KindPartList,
			ID:        string(pl.ID),
			Name:      pl.Name,
			NumParts:  pl.NumParts,
			Private:   pl.Private,
			Buildable: pl.Buildable,
		}, nil
	}
	return model.Container{}, fmt.Errorf("unknown container kind %q", kind)
}

func normalizeContainers(kind model.ContainerKind, raw []json.RawMessage) ([]model.Container, error) {
	out := make([]model.Container, 0, len(raw))
	for i, r := range raw {
		c, err := NormalizeContainer(kind, r)
		if err != nil {
			return nil, fmt.Errorf("normalize %s %d: %w", kind, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}
