package facts

import (
	"regexp"
	"strings"

	"github.com/vantagegraph/vantage/backend/pkg/common"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
)

// Short connectives that mark the relation token in an explicit
// relationship line.
var relConnectives = map[string]bool{
	"OF": true, "BY": true, "WITH": true, "TO": true,
	"FOR": true, "AT": true, "IN": true,
}

var relRoleKeywords = []string{
	"EXECUTIVE", "EMPLOYEE", "DIRECTOR", "CHAIRMAN", "CEO", "OWNS", "SUBSIDIARY",
}

// Position keywords that make an employment relation executive-grade.
var executiveRoles = []string{
	"ceo", "cto", "cfo", "director", "executive", "chairman", "president", "chief",
}

// Keywords that let a generic "<P> is <ROLE> at <C>" sentence count as an
// employment statement at all.
var roleIndicators = append([]string{
	"employee", "manager", "engineer", "analyst", "officer",
	"head", "founder", "partner", "consultant", "advisor",
}, executiveRoles...)

var (
	reEmployment  = regexp.MustCompile(`(?i)^(.+?)\s+(?:is|was|serves\s+as|works\s+as)\s+(?:the\s+)?(.+?)\s+(?:at|of|for)\s+(.+)$`)
	reExecutive   = regexp.MustCompile(`(?i)^(.+?)\s+(CEO|CTO|CFO|Director|Executive|Chairman|President)\s+(?:of|at)\s+(.+)$`)
	reEmploys     = regexp.MustCompile(`(?i)^(.+?)\s+employs?\s+(.+)$`)
	reOwnedBy     = regexp.MustCompile(`(?i)^(.+?)\s+(?:is\s+)?owned\s+by\s+(.+)$`)
	reOwns        = regexp.MustCompile(`(?i)^(.+?)\s+owns?\s+(.+)$`)
	reSubsidiary  = regexp.MustCompile(`(?i)^(.+?)\s+(?:is\s+a\s+)?subsidiary\s+of\s+(.+)$`)
	reShareholder = regexp.MustCompile(`(?i)^(.+?)\s+(?:is\s+a\s+)?shareholder\s+(?:in|of)\s+(.+)$`)
)

// ParseFact decodes one textual fact from the graph store into typed
// relationship triples. Three shapes are recognized: explicit
// "Relationship:" lines, structured PERSON:/COMPANY: blocks, and
// natural-language prose. entityName, when non-empty, filters the output
// to triples mentioning that entity and fixes each triple's direction
// relative to it.
//
// A fact that cannot be parsed yields an empty list; parse errors are
// logged and never propagated.
func ParseFact(fact string, entityName string) (triples []Triple) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Facts] Parse failure", "err", r, "fact", fact)
			triples = []Triple{}
		}
	}()

	lines := strings.Split(fact, "\n")
	consumed := make([]bool, len(lines))
	out := make([]Triple, 0)

	for i, line := range lines {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, "Relationship:") {
			continue
		}
		consumed[i] = true
		if tr, ok := parseRelationshipLine(t, entityName); ok {
			out = append(out, tr)
		}
	}

	out = append(out, parseEntityBlocks(lines, consumed, entityName)...)

	prose := make([]string, 0, len(lines))
	for i, line := range lines {
		if !consumed[i] {
			prose = append(prose, line)
		}
	}
	out = append(out, parseProse(strings.Join(prose, "\n"), entityName)...)

	return finalize(out, entityName)
}

// Shape A. "Relationship: <source> <REL_TYPE> <target>".
func parseRelationshipLine(line string, entityName string) (Triple, bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "Relationship:"))
	tokens := strings.Fields(rest)
	if len(tokens) < 3 {
		return Triple{}, false
	}

	relIdx := -1
	for i := 1; i < len(tokens)-1; i++ {
		if isRelationToken(tokens[i]) {
			relIdx = i
			break
		}
	}

	var source, rel, target string
	if relIdx > 0 {
		source = strings.Join(tokens[:relIdx], " ")
		rel = tokens[relIdx]
		target = strings.Join(tokens[relIdx+1:], " ")
	} else {
		source = tokens[0]
		rel = tokens[1]
		target = strings.Join(tokens[2:], " ")
	}

	source = cleanEntity(source)
	target = cleanEntity(target)
	if source == "" || target == "" {
		return Triple{}, false
	}

	return Triple{
		Source:    source,
		Type:      resolveRelationType(rel),
		Target:    target,
		Direction: directionFor(source, target, entityName),
		Method:    MethodDirectIngestion,
	}, true
}

func isRelationToken(tok string) bool {
	if strings.Contains(tok, "_") {
		return true
	}
	if common.KnownRelationType(common.NormalizeRelationType(tok)) {
		return true
	}
	upper := strings.ToUpper(strings.Trim(tok, ",."))
	if relConnectives[upper] {
		return true
	}
	for _, kw := range relRoleKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func resolveRelationType(tok string) string {
	norm := common.NormalizeRelationType(strings.Trim(tok, ",."))
	if common.KnownRelationType(norm) {
		return norm
	}
	upper := strings.ToUpper(tok)
	switch {
	case containsAny(upper, "CEO", "EXECUTIVE", "CHAIRMAN", "PRESIDENT", "DIRECTOR", "CHIEF"):
		return "Executive_OF"
	case strings.Contains(upper, "EMPLOYEE"):
		return "Employee_OF"
	case strings.Contains(upper, "OWNS"):
		return "Owns"
	case strings.Contains(upper, "SUBSIDIARY"):
		return "Subsidiary_OF"
	}
	return common.RelatedTO
}

// Shape B. PERSON:/COMPANY: headers followed by "Key: Value" lines.
func parseEntityBlocks(lines []string, consumed []bool, entityName string) []Triple {
	out := make([]Triple, 0)
	i := 0
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		upper := strings.ToUpper(t)

		var isPerson bool
		switch {
		case strings.HasPrefix(upper, "PERSON:"):
			isPerson = true
		case strings.HasPrefix(upper, "COMPANY:"):
			isPerson = false
		default:
			i++
			continue
		}

		name := strings.TrimSpace(t[strings.Index(t, ":")+1:])
		consumed[i] = true

		fields := map[string]string{}
		j := i + 1
		for j < len(lines) {
			ft := strings.TrimSpace(lines[j])
			if ft == "" {
				break
			}
			fu := strings.ToUpper(ft)
			if strings.HasPrefix(fu, "PERSON:") || strings.HasPrefix(fu, "COMPANY:") {
				break
			}
			if k, v, ok := strings.Cut(ft, ":"); ok {
				fields[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
				consumed[j] = true
			}
			j++
		}

		if isPerson {
			out = append(out, personBlockTriples(name, fields, entityName)...)
		} else {
			out = append(out, companyBlockTriples(name, fields, entityName)...)
		}
		i = j
	}
	return out
}

func personBlockTriples(name string, fields map[string]string, entityName string) []Triple {
	company := cleanEntity(fields["current company"])
	person := cleanEntity(name)
	if person == "" || company == "" {
		return nil
	}

	relType := "Employee_OF"
	if containsExecutiveRole(fields["current position"]) {
		relType = "Executive_OF"
	}

	// A query about the company sees the employment from the other end.
	if matchesEntity(company, entityName) && !matchesEntity(person, entityName) {
		return []Triple{{
			Source:    company,
			Type:      "Employs",
			Target:    person,
			Direction: DirectionIncoming,
			Method:    MethodStructuredEmployment,
		}}
	}

	return []Triple{{
		Source:    person,
		Type:      relType,
		Target:    company,
		Direction: directionFor(person, company, entityName),
		Method:    MethodStructuredEmployment,
	}}
}

func companyBlockTriples(name string, fields map[string]string, entityName string) []Triple {
	company := cleanEntity(name)
	execs := fields["key executives"]
	if company == "" || execs == "" {
		return nil
	}

	out := make([]Triple, 0)
	for _, raw := range strings.Split(execs, ",") {
		person := cleanEntity(raw)
		if person == "" {
			continue
		}
		if matchesEntity(company, entityName) && !matchesEntity(person, entityName) {
			out = append(out, Triple{
				Source:    company,
				Type:      "Employs",
				Target:    person,
				Direction: DirectionIncoming,
				Method:    MethodStructuredExecutiveList,
			})
			continue
		}
		out = append(out, Triple{
			Source:    person,
			Type:      "Executive_OF",
			Target:    company,
			Direction: directionFor(person, company, entityName),
			Method:    MethodStructuredExecutiveList,
		})
	}
	return out
}

// Shape C. Ordered pattern set over prose sentences; first match wins per
// sentence.
func parseProse(text string, entityName string) []Triple {
	out := make([]Triple, 0)
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == ';' || r == '\n'
	})

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if tr, ok := matchProseSentence(sentence, entityName); ok {
			out = append(out, tr)
		}
	}
	return out
}

func matchProseSentence(sentence string, entityName string) (Triple, bool) {
	if m := reEmployment.FindStringSubmatch(sentence); m != nil {
		role := strings.ToLower(m[2])
		if containsAnyLower(role, roleIndicators) {
			relType := "Employee_OF"
			if containsExecutiveRole(role) {
				relType = "Executive_OF"
			}
			return makeProseTriple(m[1], relType, m[3], "employment", entityName)
		}
	}

	if m := reExecutive.FindStringSubmatch(sentence); m != nil {
		return makeProseTriple(m[1], "Executive_OF", m[3], "executive", entityName)
	}

	if m := reEmploys.FindStringSubmatch(sentence); m != nil {
		return makeProseTriple(m[1], "Employs", m[2], "employs", entityName)
	}

	if m := reOwnedBy.FindStringSubmatch(sentence); m != nil {
		return makeProseTriple(m[1], "Owned_BY", m[2], "ownership", entityName)
	}

	if m := reOwns.FindStringSubmatch(sentence); m != nil {
		return makeProseTriple(m[1], "Owns", m[2], "ownership", entityName)
	}

	if m := reSubsidiary.FindStringSubmatch(sentence); m != nil {
		return makeProseTriple(m[1], "Subsidiary_OF", m[2], "subsidiary", entityName)
	}

	if m := reShareholder.FindStringSubmatch(sentence); m != nil {
		return makeProseTriple(m[1], "Shareholder_OF", m[2], "shareholder", entityName)
	}

	return Triple{}, false
}

func makeProseTriple(source, relType, target, category, entityName string) (Triple, bool) {
	source = cleanEntity(source)
	target = cleanEntity(target)
	if source == "" || target == "" {
		return Triple{}, false
	}
	return Triple{
		Source:    source,
		Type:      relType,
		Target:    target,
		Direction: directionFor(source, target, entityName),
		Method:    methodNaturalLanguagePrefix + category,
	}, true
}

// finalize filters triples to those mentioning the requested entity and
// deduplicates by (source, type, target), case-insensitive on the entities.
func finalize(in []Triple, entityName string) []Triple {
	out := make([]Triple, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		if entityName != "" && !matchesEntity(t.Source, entityName) && !matchesEntity(t.Target, entityName) {
			continue
		}
		key := strings.ToLower(t.Source) + "|" + t.Type + "|" + strings.ToLower(t.Target)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func cleanEntity(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'.,;:`)
	if strings.HasPrefix(strings.ToLower(s), "the ") {
		s = s[len("the "):]
	}
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return ""
	}
	return s
}

func matchesEntity(s string, entityName string) bool {
	if entityName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(entityName))
}

func directionFor(source, target, entityName string) Direction {
	if entityName == "" {
		return DirectionUnknown
	}
	if matchesEntity(source, entityName) {
		return DirectionOutgoing
	}
	if matchesEntity(target, entityName) {
		return DirectionIncoming
	}
	return DirectionUnknown
}

func containsExecutiveRole(position string) bool {
	return containsAnyLower(strings.ToLower(position), executiveRoles)
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func containsAnyLower(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
