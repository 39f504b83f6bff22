package search

import "strings"

// Business-vocabulary synonym dictionary used for query expansion. The
// top two synonyms per matched token are added; everything else passes
// through untouched.
var synonymDict = map[string][]string{
	"company":      {"corporation", "business", "firm", "enterprise"},
	"ceo":          {"chief executive officer", "chief executive", "managing director"},
	"cfo":          {"chief financial officer", "finance director"},
	"executive":    {"officer", "director", "manager"},
	"employee":     {"worker", "staff member", "personnel"},
	"investment":   {"funding", "capital", "financing"},
	"investor":     {"shareholder", "backer", "financier"},
	"acquisition":  {"takeover", "purchase", "buyout"},
	"merger":       {"consolidation", "combination"},
	"subsidiary":   {"unit", "division", "affiliate"},
	"partnership":  {"alliance", "collaboration", "joint venture"},
	"revenue":      {"income", "earnings", "turnover"},
	"profit":       {"earnings", "income", "gains"},
	"loan":         {"credit", "financing", "borrowing"},
	"shareholder":  {"stockholder", "investor", "owner"},
	"founder":      {"creator", "originator", "entrepreneur"},
	"headquarters": {"head office", "main office", "base"},
	"contract":     {"agreement", "deal", "arrangement"},
}

// ExpandQuery widens the query with the top two synonyms for every token
// found in the business dictionary, joined with OR so the text index
// treats them as alternatives.
func ExpandQuery(query string) string {
	tokens := strings.Fields(query)
	out := make([]string, 0, len(tokens))

	for _, tok := range tokens {
		key := strings.ToLower(strings.Trim(tok, `.,;:"'?!`))
		syns, ok := synonymDict[key]
		if !ok {
			out = append(out, tok)
			continue
		}
		if len(syns) > 2 {
			syns = syns[:2]
		}
		out = append(out, tok+" OR "+strings.Join(syns, " OR "))
	}

	return strings.Join(out, " ")
}
