package zoho

import (
	"time"

	"github.com/tidwall/gjson"
)

// Record is the subset of a Leads or Deals row the classifier reads.
// Lookup fields (Owner, Raaz_Mitra) are flattened to plain strings.
type Record struct {
	ID          string
	Phone       string
	Mobile      string
	FullName    string
	OwnerID     string
	Stage       string
	RaazMitra   string
	CreatedTime time.Time
}

// parseRecords decodes the data array of a search response. Rows that are not
// objects are skipped; an unparsable Created_Time leaves CreatedTime zero.
func parseRecords(body []byte) []Record {
	var out []Record
	gjson.GetBytes(body, "data").ForEach(func(_, row gjson.Result) bool {
		if !row.IsObject() {
			return true
		}
		rec := Record{
			ID:        row.Get("id").String(),
			Phone:     row.Get("Phone").String(),
			Mobile:    row.Get("Mobile").String(),
			FullName:  row.Get("Full_Name").String(),
			OwnerID:   row.Get("Owner.id").String(),
			Stage:     row.Get("Stage").String(),
			RaazMitra: lookupName(row.Get("Raaz_Mitra")),
		}
		if ts := row.Get("Created_Time").String(); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				rec.CreatedTime = t
			}
		}
		out = append(out, rec)
		return true
	})
	return out
}

// lookupName reads a field that is either a plain string or a lookup object
// {"name": ..., "id": ...}.
func lookupName(v gjson.Result) string {
	if v.IsObject() {
		return v.Get("name").String()
	}
	if v.Type == gjson.Null {
		return ""
	}
	return v.String()
}
