package classify

import (
	"github.com/sells-group/missedcall/internal/model"
	"github.com/sells-group/missedcall/pkg/zoho"
)

// localDigits is the subscriber part compared when country prefixes differ.
const localDigits = 10

// phoneMatcher maps CRM phone fields back to the queried numbers. The CRM
// may store a number with or without the country code, so an exact digit
// match is tried first and then the trailing ten digits.
type phoneMatcher struct {
	exact map[string]string
	local map[string][]string
}

func newPhoneMatcher(phones []string) *phoneMatcher {
	m := &phoneMatcher{
		exact: make(map[string]string, len(phones)),
		local: make(map[string][]string, len(phones)),
	}
	for _, p := range phones {
		digits := model.NormalizePhone(p)
		m.exact[digits] = p
		if len(digits) >= localDigits {
			key := digits[len(digits)-localDigits:]
			m.local[key] = append(m.local[key], p)
		}
	}
	return m
}

// match returns the queried numbers that rec's Phone or Mobile refers to.
func (m *phoneMatcher) match(rec zoho.Record) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, field := range []string{rec.Phone, rec.Mobile} {
		digits := model.NormalizePhone(field)
		if digits == "" {
			continue
		}
		if p, ok := m.exact[digits]; ok {
			add(p)
			continue
		}
		if len(digits) >= localDigits {
			for _, p := range m.local[digits[len(digits)-localDigits:]] {
				add(p)
			}
		}
	}
	return out
}
