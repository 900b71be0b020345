// Package models defines the client-side data models of cardsync.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cardsync/internal/common"
)

// Rarity classifies how rare a card is.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityUltraRare Rarity = "ultra-rare"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityUltraRare, RarityLegendary:
		return true
	}
	return false
}

// Visibility controls who may see a published card.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilityUnlisted:
		return true
	}
	return false
}

// CreatorAttribution records who made a card and how.
type CreatorAttribution struct {
	CreatorID         string `json:"creatorId,omitempty"`
	CreatorName       string `json:"creatorName,omitempty"`
	CollaborationType string `json:"collaborationType,omitempty"`
}

// PublishingOptions holds the marketplace, catalog and print settings.
type PublishingOptions struct {
	Marketplace      bool    `json:"marketplace"`
	IncludeInCatalog bool    `json:"includeInCatalog"`
	Print            bool    `json:"print"`
	Price            float64 `json:"price,omitempty"`
	Currency         string  `json:"currency,omitempty"`
	Distribution     string  `json:"distribution,omitempty"`
}

// CardRecord is a card's durable representation. DesignMetadata belongs to
// the editor; storage never looks inside it.
type CardRecord struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description,omitempty"`
	ImageURL           string             `json:"imageUrl,omitempty"`
	ThumbnailURL       string             `json:"thumbnailUrl,omitempty"`
	Rarity             Rarity             `json:"rarity,omitempty"`
	Tags               []string           `json:"tags,omitempty"`
	DesignMetadata     json.RawMessage    `json:"designMetadata,omitempty"`
	Visibility         Visibility         `json:"visibility,omitempty"`
	CreatorAttribution CreatorAttribution `json:"creatorAttribution"`
	PublishingOptions  PublishingOptions  `json:"publishingOptions"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Clone returns a deep copy so callers can hand records across goroutines.
func (c CardRecord) Clone() CardRecord {
	out := c
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	if c.DesignMetadata != nil {
		out.DesignMetadata = append(json.RawMessage(nil), c.DesignMetadata...)
	}
	return out
}

// Equal reports whether two records hold the same data, timestamps included.
func (c CardRecord) Equal(o CardRecord) bool {
	a, errA := json.Marshal(c)
	b, errB := json.Marshal(o)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// Validate checks the enum fields. Empty enums are allowed and mean "unset".
func (c CardRecord) Validate() error {
	if c.Rarity != "" && !c.Rarity.Valid() {
		return fmt.Errorf("%w: rarity %q", common.ErrInvalidField, c.Rarity)
	}
	if c.Visibility != "" && !c.Visibility.Valid() {
		return fmt.Errorf("%w: visibility %q", common.ErrInvalidField, c.Visibility)
	}
	return nil
}

// IsPublic is what the remote stores in its is_public column.
func (c CardRecord) IsPublic() bool {
	return c.Visibility == VisibilityPublic
}

// SetField applies one editor mutation. Values arrive loosely typed from the
// UI, so they are converted through JSON into the target field.
func (c *CardRecord) SetField(name string, value any) error {
	switch name {
	case "title":
		return decodeInto(name, value, &c.Title)
	case "description":
		return decodeInto(name, value, &c.Description)
	case "imageUrl":
		return decodeInto(name, value, &c.ImageURL)
	case "thumbnailUrl":
		return decodeInto(name, value, &c.ThumbnailURL)
	case "rarity":
		var r Rarity
		if err := decodeInto(name, value, &r); err != nil {
			return err
		}
		if !r.Valid() {
			return fmt.Errorf("%w: rarity %q", common.ErrInvalidField, r)
		}
		c.Rarity = r
	case "visibility":
		var v Visibility
		if err := decodeInto(name, value, &v); err != nil {
			return err
		}
		if !v.Valid() {
			return fmt.Errorf("%w: visibility %q", common.ErrInvalidField, v)
		}
		c.Visibility = v
	case "tags":
		var tags []string
		if err := decodeInto(name, value, &tags); err != nil {
			return err
		}
		c.Tags = NormalizeTags(tags)
	case "designMetadata":
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: designMetadata: %v", common.ErrInvalidField, err)
		}
		c.DesignMetadata = raw
	case "creatorAttribution":
		return decodeInto(name, value, &c.CreatorAttribution)
	case "publishingOptions":
		return decodeInto(name, value, &c.PublishingOptions)
	default:
		return fmt.Errorf("%w: unknown field %q", common.ErrInvalidField, name)
	}
	return nil
}

func decodeInto(name string, value any, dst any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrInvalidField, name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrInvalidField, name, err)
	}
	return nil
}

// NormalizeTags trims tags, drops empties and keeps the first occurrence of
// each tag in order.
func NormalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
