package document

import (
	"encoding/json"

	"github.com/neubio/neubio/pkg/apperrors"
)

const (
	FallbackIcon        = "fa6-solid:link"
	DefaultSocialColor  = "#333333"
	DefaultProjectSize  = "small"
	DefaultFlipInterval = 5
	PlaceholderImage    = "https://via.placeholder.com/300"
)

// legacyIcons maps the old enum-style platform tags to icon references.
var legacyIcons = map[string]string{
	"instagram": "fa6-brands:instagram",
	"linkedin":  "fa6-brands:linkedin",
	"twitter":   "fa6-brands:x-twitter",
	"email":     "fa6-solid:envelope",
	"github":    "fa6-brands:github",
	"youtube":   "fa6-brands:youtube",
	"web":       "fa6-solid:globe",
	"medium":    "fa6-brands:medium",
	"wechat":    "fa6-brands:weixin",
}

// IconForPlatform returns the icon reference for a legacy platform tag.
func IconForPlatform(platform string) string {
	if icon, ok := legacyIcons[platform]; ok {
		return icon
	}
	return FallbackIcon
}

func defaultProfile() map[string]any {
	return map[string]any{
		"name":        "",
		"title":       "",
		"avatar":      "",
		"contactText": "Contact",
		"contactUrl":  "",
	}
}

func defaultTheme() map[string]any {
	return map[string]any{
		"style":        "default",
		"primaryColor": "#3b82f6",
		"bgColor":      "#e0e5ec",
		"fontFamily":   "sans",
		"fontSize":     float64(16),
	}
}

func defaultSections() map[string]any {
	return map[string]any{
		"socials":  map[string]any{"visible": true, "title": "", "style": "grid"},
		"projects": map[string]any{"visible": true, "title": "Recent Projects", "style": "grid"},
	}
}

// flat top-level profile fields used by the React-era documents.
var legacyProfileKeys = []string{"name", "title", "avatar", "contactText", "contactUrl"}

// Migrate upgrades a parsed document of any historical shape to the current
// one. It only adds missing fields, except for the explicit one-time
// mappings (flat profile lifted into "profile", social "platform" replaced
// by "icon"). Running it on a current document changes nothing.
func Migrate(raw map[string]any) map[string]any {
	if raw == nil {
		raw = map[string]any{}
	}

	if _, ok := raw["profile"].(map[string]any); !ok {
		lifted := map[string]any{}
		for _, k := range legacyProfileKeys {
			if v, ok := raw[k]; ok {
				lifted[k] = v
				delete(raw, k)
			}
		}
		raw["profile"] = lifted
	}
	fill(raw["profile"].(map[string]any), defaultProfile())

	raw["socials"] = migrateItems(raw["socials"], migrateSocial)
	raw["projects"] = migrateItems(raw["projects"], migrateProject)

	raw["theme"] = fillObject(raw["theme"], defaultTheme())

	sections, _ := raw["sections"].(map[string]any)
	if sections == nil {
		sections = map[string]any{}
	}
	for name, def := range defaultSections() {
		sections[name] = fillObject(sections[name], def.(map[string]any))
	}
	raw["sections"] = sections

	raw["admin"] = fillObject(raw["admin"], map[string]any{"passwordHash": ""})
	return raw
}

func migrateSocial(s map[string]any) {
	if _, ok := s["icon"]; !ok {
		platform, _ := s["platform"].(string)
		s["icon"] = IconForPlatform(platform)
		delete(s, "platform")
	}
	fill(s, map[string]any{
		"id":     NewID(),
		"url":    "#",
		"label":  "",
		"color":  DefaultSocialColor,
		"newTab": true,
	})
}

func migrateProject(p map[string]any) {
	fill(p, map[string]any{
		"id":     NewID(),
		"title":  "",
		"image":  "",
		"size":   DefaultProjectSize,
		"newTab": true,
		"hidden": false,
	})
	p["autoFlip"] = fillObject(p["autoFlip"], map[string]any{
		"enabled":  false,
		"interval": float64(DefaultFlipInterval),
	})
}

func migrateItems(v any, fn func(map[string]any)) []any {
	items, _ := v.([]any)
	out := make([]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		fn(m)
		out = append(out, m)
	}
	return out
}

// fill sets every key of defaults that dst lacks (or holds as null).
func fill(dst, defaults map[string]any) {
	for k, v := range defaults {
		if cur, ok := dst[k]; !ok || cur == nil {
			dst[k] = v
		}
	}
}

func fillObject(v any, defaults map[string]any) map[string]any {
	m, _ := v.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	fill(m, defaults)
	return m
}

// Decode parses raw JSON of any historical shape into a current Document.
// Input that is not a JSON object is a load failure.
func Decode(data []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, apperrors.New(apperrors.Validation, "decode", "document is not a JSON object")
	}
	migrated, err := json.Marshal(Migrate(raw))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Validation, "decode", "")
	}
	var d Document
	if err := json.Unmarshal(migrated, &d); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Validation, "decode", "field has the wrong type")
	}
	return &d, nil
}

// Encode serializes the whole document for a push.
func Encode(d *Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
