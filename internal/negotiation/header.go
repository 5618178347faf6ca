package negotiation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// ContextHeader carries client preferences as an RFC 8941 dictionary:
//
//	Storefront-Context: currency=KWD, lang=ar, app="2.4.0";platform=ios
//
// Every member is optional. Strings and tokens are both accepted.
const ContextHeader = "Storefront-Context"

// Preferences are the members of a Storefront-Context header.
type Preferences struct {
	Currency string
	Lang     string
	App      string
	Platform string
}

// ParseContextHeader decodes a Storefront-Context header. Unknown members are ignored.
func ParseContextHeader(header string) (Preferences, error) {
	var p Preferences
	header = strings.TrimSpace(header)
	if header == "" {
		return p, errors.New("empty Storefront-Context header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return p, fmt.Errorf("invalid Storefront-Context header: %w", err)
	}

	if p.Currency, err = stringMember(dict, "currency"); err != nil {
		return Preferences{}, err
	}
	p.Currency = strings.ToUpper(p.Currency)
	if p.Lang, err = stringMember(dict, "lang"); err != nil {
		return Preferences{}, err
	}
	if p.App, err = stringMember(dict, "app"); err != nil {
		return Preferences{}, err
	}

	if member, ok := dict.Get("app"); ok {
		if item, ok := member.(httpsfv.Item); ok {
			if v, ok := item.Params.Get("platform"); ok {
				p.Platform = valueString(v)
			}
		}
	}
	return p, nil
}

// FormatContextHeader encodes p. Empty fields are left out.
func FormatContextHeader(p Preferences) (string, error) {
	dict := httpsfv.NewDictionary()
	if p.Currency != "" {
		dict.Add("currency", httpsfv.NewItem(p.Currency))
	}
	if p.Lang != "" {
		dict.Add("lang", httpsfv.NewItem(p.Lang))
	}
	if p.App != "" {
		app := httpsfv.NewItem(p.App)
		if p.Platform != "" {
			app.Params.Add("platform", p.Platform)
		}
		dict.Add("app", app)
	}
	return httpsfv.Marshal(dict)
}

func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}
	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s must be an item", key)
	}
	s := valueString(item.Value)
	if s == "" {
		return "", fmt.Errorf("%s must be a string or token", key)
	}
	return s, nil
}

func valueString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case httpsfv.Token:
		return string(x)
	default:
		return ""
	}
}
