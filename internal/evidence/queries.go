package evidence

import "fmt"

// querySuffixes are appended to the quoted company name and city.
var querySuffixes = []string{
	"turnover revenue",
	"annual sales",
	"annual report pdf revenue",
	"financial statements revenue",
	"balance sheet revenue",
	"company profile",
}

// Queries returns the search query variants for a company in a city.
func Queries(name, city string) []string {
	out := make([]string, 0, len(querySuffixes))
	for _, s := range querySuffixes {
		out = append(out, fmt.Sprintf(`"%s" "%s" %s`, name, city, s))
	}
	return out
}
