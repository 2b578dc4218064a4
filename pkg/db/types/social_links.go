package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SocialLinks is a platform→URL map stored as jsonb.
type SocialLinks map[string]string

func (s *SocialLinks) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("SocialLinks: unsupported Scan type %T", src)
	}

	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

func (s SocialLinks) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return json.Marshal(s)
}
