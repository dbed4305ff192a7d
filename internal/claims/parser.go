// Package claims parses claim data pasted from the claims system and builds
// a retrieval query from it.
//
// Pasted claims are loosely structured "Label: value" text in Spanish or
// English. Recognised labels are the policy number, DNI/NIF, insured name,
// address, cadastral reference, claim description, service reason and
// cause. Unrecognised lines are ignored.
package claims

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Query length limits, in runes.
const (
	descriptionQueryLimit = 200
	reasonQueryLimit      = 200
	rawQueryLimit         = 500
)

// Claim is the structured form of pasted claim data.
// Fields not found in the text are empty.
type Claim struct {
	PolicyNumber       string `json:"policy_number,omitempty"`
	DNI                string `json:"dni,omitempty"`
	InsuredName        string `json:"insured_name,omitempty"`
	Address            string `json:"address,omitempty"`
	CadastralReference string `json:"cadastral_reference,omitempty"`
	Description        string `json:"claim_description,omitempty"`
	ServiceReason      string `json:"service_reason,omitempty"`
	Cause              string `json:"cause,omitempty"`
	Raw                string `json:"-"`
}

var (
	policyRe    = regexp.MustCompile(`(?i)(?:póliza|poliza|policy)[\s:]*(\d+)`)
	dniRe       = regexp.MustCompile(`(?i)(?:dni|nif)[\s:]*([a-z0-9]{8,9})\b`)
	insuredRe   = regexp.MustCompile(`(?im)^[ \t]*(?:asegurado|insured)[ \t]*:?[ \t]*(\p{L}[\p{L} \t.'-]*)$`)
	addressRe   = regexp.MustCompile(`(?im)^[ \t]*(?:domicilio|dirección|direccion|address)[ \t]*:?[ \t]*(.+)$`)
	cadastralRe = regexp.MustCompile(`(?im)^[ \t]*(?:referencia[ \t]+catastral|catastral)[ \t]*:?[ \t]*([a-z0-9 ]+)$`)
	causeRe     = regexp.MustCompile(`(?im)^[ \t]*(?:causa|cause)[ \t]*:?[ \t]*(.+)$`)

	// Block labels start a field that may continue over several lines.
	descriptionLabel = regexp.MustCompile(`(?i)^[ \t]*(?:descripción|descripcion)[ \t]+del[ \t]+siniestro[ \t]*:?[ \t]*|^[ \t]*description[ \t]*:?[ \t]*`)
	reasonLabel      = regexp.MustCompile(`(?i)^[ \t]*(?:motivo[ \t]+de[ \t]+alta|service[ \t]+reason)[ \t]*:?[ \t]*`)

	// Any known label; ends a multi-line block.
	anyLabel = regexp.MustCompile(`(?i)^[ \t]*(?:póliza|poliza|policy|dni|nif|asegurado|insured|domicilio|dirección|direccion|address|referencia[ \t]+catastral|catastral|descripción|descripcion|description|motivo|service[ \t]+reason|causa|cause)\b`)
)

// Parse extracts the recognised fields from raw claim text.
func Parse(raw string) Claim {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	c := Claim{Raw: raw}

	c.PolicyNumber = firstGroup(policyRe, text)
	c.DNI = strings.ToUpper(firstGroup(dniRe, text))
	c.InsuredName = strings.TrimSpace(firstGroup(insuredRe, text))
	c.Address = firstGroup(addressRe, text)
	c.CadastralReference = strings.ToUpper(firstGroup(cadastralRe, text))
	c.Cause = firstGroup(causeRe, text)
	c.Description = block(descriptionLabel, text)
	c.ServiceReason = block(reasonLabel, text)

	return c
}

// IsEmpty reports whether no field was recognised.
func (c Claim) IsEmpty() bool {
	return c.PolicyNumber == "" && c.DNI == "" && c.InsuredName == "" &&
		c.Address == "" && c.CadastralReference == "" && c.Description == "" &&
		c.ServiceReason == "" && c.Cause == ""
}

// Query builds the retrieval query for the claim.
//
// It joins the cause, the start of the description and the start of the
// service reason. Without any of them it falls back to the start of the
// raw text.
func (c Claim) Query() string {
	var terms []string
	if c.Cause != "" {
		terms = append(terms, c.Cause)
	}
	if c.Description != "" {
		terms = append(terms, truncate(c.Description, descriptionQueryLimit))
	}
	if c.ServiceReason != "" {
		terms = append(terms, truncate(c.ServiceReason, reasonQueryLimit))
	}
	if len(terms) > 0 {
		return strings.Join(terms, " ")
	}
	return truncate(strings.TrimSpace(c.Raw), rawQueryLimit)
}

// Keywords returns the first limit distinct content words of the claim's
// query, lower-cased, in order of appearance.
func (c Claim) Keywords(limit int) []string {
	return Keywords(c.Query(), limit)
}

var wordRe = regexp.MustCompile(`\p{L}+`)

var stopWords = map[string]bool{
	"que": true, "del": true, "las": true, "los": true, "una": true, "por": true,
	"con": true, "para": true, "esta": true, "este": true, "está": true, "están": true,
	"como": true, "pero": true, "sobre": true, "entre": true, "desde": true, "hasta": true,
	"tiene": true, "sido": true, "muy": true, "también": true, "donde": true, "cuando": true,
}

// Keywords extracts distinct words longer than three letters that are not
// stop words, in order of first appearance. A limit of zero or less
// returns all of them.
func Keywords(text string, limit int) []string {
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) <= 3 || stopWords[w] || slices.Contains(out, w) {
			continue
		}
		out = append(out, w)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// block returns the value of a labelled field that starts on the label's
// line and continues until a blank line or another known label.
func block(label *regexp.Regexp, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		loc := label.FindStringIndex(line)
		if loc == nil {
			continue
		}

		parts := []string{strings.TrimSpace(line[loc[1]:])}
		for _, next := range lines[i+1:] {
			if strings.TrimSpace(next) == "" || anyLabel.MatchString(next) {
				break
			}
			parts = append(parts, strings.TrimSpace(next))
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
