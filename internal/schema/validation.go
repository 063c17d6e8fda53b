// internal/schema/validation.go
package schema

import (
	"fmt"
	"regexp"
)

// Validate checks a field spec and all of its nested specs.
func (f FieldSpec) Validate() error {
	if f.Selector == "" {
		return fmt.Errorf("field selector is required")
	}

	typeOK := false
	for _, t := range ValidFieldTypes() {
		if f.Type == t {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return fmt.Errorf("invalid field type: %q", f.Type)
	}

	if f.Type == TypeCompound && len(f.Fields) == 0 {
		return fmt.Errorf("compound field requires nested fields")
	}
	if f.Type != TypeCompound && len(f.Fields) > 0 {
		return fmt.Errorf("nested fields are only valid for compound type, got %q", f.Type)
	}

	if f.MaxLength < 0 {
		return fmt.Errorf("max_length cannot be negative")
	}

	if f.Regex != "" {
		if _, err := regexp.Compile(f.Regex); err != nil {
			return fmt.Errorf("invalid regex %q: %w", f.Regex, err)
		}
	}

	if err := f.Transform.Validate(); err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	for name, nested := range f.Fields {
		if err := nested.Validate(); err != nil {
			return fmt.Errorf("nested field %q: %w", name, err)
		}
	}

	return nil
}

// Validate checks the item spec and every field it contains.
func (s ItemSpec) Validate() error {
	if s.ContainerSelector == "" {
		return fmt.Errorf("container_selector is required")
	}
	if s.ItemSelector == "" {
		return fmt.Errorf("item_selector is required")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("at least one field must be configured")
	}
	if s.MaxItems < 0 {
		return fmt.Errorf("max_items cannot be negative")
	}

	for name, field := range s.Fields {
		if name == "" {
			return fmt.Errorf("field name cannot be empty")
		}
		if err := field.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}

	return nil
}

// Validate checks that the fields required by the active variant are set.
func (n NavigationSpec) Validate() error {
	switch n.Type {
	case NavURLParameter:
		if n.URLTemplate == "" && n.PageParam == "" {
			return fmt.Errorf("url_parameter navigation requires url_template or page_param")
		}

	case NavNextButton:
		if n.NextButtonSelector == "" {
			return fmt.Errorf("next_button navigation requires next_button_selector")
		}

	case NavPageNumber:
		if n.PageLinkSelector == "" {
			return fmt.Errorf("page_number navigation requires page_link_selector")
		}

	case NavFormSubmit:
		if n.FormSelector == "" {
			return fmt.Errorf("form_submit navigation requires form_selector")
		}
		if len(n.FormFields) == 0 {
			return fmt.Errorf("form_submit navigation requires form_fields")
		}

	case NavInfiniteScroll:
		if n.ScrollContainerSelector == "" {
			return fmt.Errorf("infinite_scroll navigation requires scroll_container_selector")
		}
		if n.NewItemSelector == "" {
			return fmt.Errorf("infinite_scroll navigation requires new_item_selector")
		}
		if n.ScrollThreshold < 0 || n.ScrollThreshold > 1 {
			return fmt.Errorf("scroll_threshold must be within [0, 1]")
		}

	default:
		return fmt.Errorf("unknown navigation type: %q", n.Type)
	}

	return nil
}
