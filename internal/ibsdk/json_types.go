package ibsdk

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var jsonNull = []byte("null")

// flexString accepts a JSON string or number. The remote sends user ids as
// either depending on the endpoint version.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, jsonNull):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := jsonUnmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*s = flexString(data)
	}
	return nil
}

// flexBool accepts true/false, numbers and the strings ParseBool understands.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, jsonNull):
		*b = false
	case bytes.Equal(data, []byte("true")):
		*b = true
	case bytes.Equal(data, []byte("false")):
		*b = false
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := jsonUnmarshal(data, &str); err != nil {
			return err
		}
		v, err := strconv.ParseBool(strings.TrimSpace(str))
		if err != nil {
			return fmt.Errorf("expected boolean string, got %q", str)
		}
		*b = flexBool(v)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("expected boolean, got %s", data)
		}
		*b = f != 0
	}
	return nil
}

// FingerprintSet is a snapshot of the content hashes the remote already has.
// It is never updated after it is fetched.
type FingerprintSet struct {
	set mapset.Set[string]
}

func NewFingerprintSet(hashes ...string) FingerprintSet {
	set := mapset.NewSet[string]()
	for _, h := range hashes {
		if h = normalizeHash(h); h != "" {
			set.Add(h)
		}
	}
	return FingerprintSet{set: set}
}

func (s FingerprintSet) Contains(hash string) bool {
	if s.set == nil {
		return false
	}
	return s.set.ContainsOne(normalizeHash(hash))
}

func (s FingerprintSet) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Cardinality()
}

// UnmarshalJSON accepts a list of hashes or an object keyed by hash.
func (s *FingerprintSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		*s = NewFingerprintSet()
		return nil
	}

	switch data[0] {
	case '[':
		var list []string
		if err := jsonUnmarshal(data, &list); err != nil {
			return fmt.Errorf("md5 list: %w", err)
		}
		*s = NewFingerprintSet(list...)
	case '{':
		var keyed map[string]any
		if err := jsonUnmarshal(data, &keyed); err != nil {
			return fmt.Errorf("md5 map: %w", err)
		}
		hashes := make([]string, 0, len(keyed))
		for h := range keyed {
			hashes = append(hashes, h)
		}
		*s = NewFingerprintSet(hashes...)
	default:
		return fmt.Errorf("md5: expected list or object, got %.32s", data)
	}
	return nil
}

func normalizeHash(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
