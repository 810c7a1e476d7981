package catalog

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
)

var validate = validator.New()

// Criteria is one catalog search request. Built fresh for every page.
type Criteria struct {
	Offset int      `validate:"gte=0"`
	Limit  int      `validate:"gt=0"`
	Title  string   `validate:"max=256"`
	Style  []string `validate:"dive,required"`
	// Type is optional; empty searches every facet.
	Type string `validate:"omitempty,oneof=Rings Earrings Pendants Bracelets Necklaces Charms"`
}

// Validate checks field constraints.
func (c Criteria) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidCriteria, err)
	}
	return nil
}

// Page returns a copy of c positioned at offset with the given limit.
func (c Criteria) Page(offset, limit int) Criteria {
	c.Offset = offset
	c.Limit = limit
	c.Style = append([]string(nil), c.Style...)
	return c
}

// Values encodes the criteria as query parameters. Style is repeated once per tag.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	v.Set("offset", strconv.Itoa(c.Offset))
	v.Set("limit", strconv.Itoa(c.Limit))
	v.Set("title", c.Title)
	for _, s := range c.Style {
		v.Add("style", s)
	}
	if c.Type != "" {
		v.Set("type", c.Type)
	}
	return v
}
