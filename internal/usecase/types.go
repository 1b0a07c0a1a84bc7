package usecase

import (
	"fmt"
	"strings"

	"resume-tailor/internal/model"
)

// Overrides are user-supplied profile overrides focused on the few fields
// the enhancement step is allowed to touch.
type Overrides struct {
	Publications   []string               `json:"publications"`
	Certifications []model.Certification  `json:"certifications"`
	Extras         []model.ExtraItem      `json:"extras"`
	Other          map[string]interface{} `json:"-"`
}

// ToMap converts the typed Overrides back into a map for the enhancement
// payload.
func (o *Overrides) ToMap() map[string]interface{} {
	out := map[string]interface{}{}
	if o == nil {
		return out
	}
	if len(o.Publications) > 0 {
		out["publications"] = o.Publications
	}
	if len(o.Certifications) > 0 {
		out["certifications"] = o.Certifications
	}
	if len(o.Extras) > 0 {
		out["extras"] = o.Extras
	}
	for k, v := range o.Other {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}

const maxExtraTextLen = 140

// NewOverridesFromMap normalizes a generic overrides map. Inputs arrive
// in several shapes (single strings, arrays, structured objects);
// everything is coerced into the typed form so downstream validation is
// less likely to fail.
func NewOverridesFromMap(m map[string]interface{}) *Overrides {
	out := &Overrides{Other: map[string]interface{}{}}
	if m == nil {
		return out
	}

	if p, ok := m["publications"]; ok {
		for _, it := range asSlice(p) {
			switch v := it.(type) {
			case string:
				out.Publications = append(out.Publications, strings.TrimSpace(v))
			case map[string]interface{}:
				title, _ := v["title"].(string)
				outline, _ := v["outline"].(string)
				switch {
				case title != "" && outline != "":
					out.Publications = append(out.Publications, title+" — "+outline)
				case title != "":
					out.Publications = append(out.Publications, title)
				case outline != "":
					out.Publications = append(out.Publications, outline)
				}
			default:
				out.Publications = append(out.Publications, fmt.Sprintf("%v", v))
			}
		}
	}

	if c, ok := m["certifications"]; ok {
		for _, it := range asSlice(c) {
			switch v := it.(type) {
			case string:
				out.Certifications = append(out.Certifications, model.Certification{Name: v})
			case map[string]interface{}:
				cert := model.Certification{}
				cert.Name, _ = v["name"].(string)
				cert.Issuer, _ = v["issuer"].(string)
				cert.Date, _ = v["date"].(string)
				cert.URL, _ = v["url"].(string)
				cert.Description, _ = v["description"].(string)
				out.Certifications = append(out.Certifications, cert)
			default:
				out.Certifications = append(out.Certifications, model.Certification{Name: fmt.Sprintf("%v", v)})
			}
		}
	}

	if e, ok := m["extras"]; ok {
		for _, it := range asSlice(e) {
			switch v := it.(type) {
			case string:
				out.Extras = append(out.Extras, model.ExtraItem{Category: "misc", Text: clip(v, maxExtraTextLen)})
			case map[string]interface{}:
				cat, _ := v["category"].(string)
				if cat == "" {
					cat = "misc"
				}
				txt, _ := v["text"].(string)
				out.Extras = append(out.Extras, model.ExtraItem{Category: cat, Text: clip(txt, maxExtraTextLen)})
			default:
				out.Extras = append(out.Extras, model.ExtraItem{Category: "misc", Text: fmt.Sprintf("%v", v)})
			}
		}
	}

	for k, v := range m {
		switch k {
		case "publications", "certifications", "extras":
		default:
			out.Other[k] = v
		}
	}
	return out
}

// asSlice flattens single values and arrays to one shape.
func asSlice(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case nil:
		return nil
	default:
		return []interface{}{t}
	}
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max]
	}
	return s
}
