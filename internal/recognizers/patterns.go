package recognizers

import (
	"regexp"
	"strings"
)

// patternSpec is the declarative form a built-in or custom pattern is
// defined in before compilation. ContextKeywords, when any is found within
// the fixed context window around a match, boost the match's score; DenyList
// tokens, when found inside the matched text itself, veto the match outright.
//
// Confidence bands follow the Presidio / CHPDA convention also used by the
// pattern table this recognizer line descends from:
//
//	0.90+      structurally unambiguous, low false-positive risk
//	0.70-0.89  moderately specific, some ambiguity
//	below 0.70 broad pattern, meaningful false-positive risk without context
type patternSpec struct {
	expr            string
	entityType      string
	baseScore       float64
	contextKeywords []string
	denyList        []string
}

// Pattern is the compiled form of a patternSpec, ready for matching.
type Pattern struct {
	Regex           *regexp.Regexp
	EntityType      string
	BaseScore       float64
	ContextKeywords []string
	DenyList        []string
	Name            string
}

func compile(specs []patternSpec) []Pattern {
	out := make([]Pattern, 0, len(specs))
	for _, s := range specs {
		re, err := regexp.Compile(s.expr)
		if err != nil {
			// A built-in failing to compile is a programming error, not a
			// runtime condition; skip rather than panic so one bad entry
			// doesn't take down the whole table.
			continue
		}
		out = append(out, Pattern{
			Regex:           re,
			EntityType:      s.entityType,
			BaseScore:       s.baseScore,
			ContextKeywords: s.contextKeywords,
			DenyList:        s.denyList,
			Name:            s.entityType,
		})
	}
	return out
}

// commonDrugNames backs the DRUG_NAME recognizer: a fixed list of common
// generic and brand medication names, matched as whole tokens rather than
// vetoed the way patternSpec.denyList works. This is the deterministic
// counterpart to the neural layer's "medication" label, so DRUG_NAME is
// still detectable with L2 disabled.
var commonDrugNames = []string{
	"acetaminophen", "ibuprofen", "aspirin", "amoxicillin", "atorvastatin",
	"lisinopril", "metformin", "amlodipine", "metoprolol", "omeprazole",
	"simvastatin", "losartan", "albuterol", "gabapentin", "hydrochlorothiazide",
	"sertraline", "furosemide", "fluoxetine", "citalopram", "escitalopram",
	"warfarin", "clopidogrel", "levothyroxine", "prednisone", "prednisolone",
	"tramadol", "oxycodone", "hydrocodone", "morphine", "fentanyl",
	"amphetamine", "methylphenidate", "alprazolam", "lorazepam", "diazepam",
	"zolpidem", "clonazepam", "duloxetine", "venlafaxine", "bupropion",
	"quetiapine", "risperidone", "aripiprazole", "olanzapine", "metronidazole",
	"azithromycin", "ciprofloxacin", "doxycycline", "adderall", "xanax",
	"vicodin", "percocet", "ambien", "lipitor", "zoloft", "prozac", "advil",
	"tylenol", "humira", "lantus", "ozempic", "metoclopramide",
}

// drugNamePattern builds a single whole-token, case-insensitive alternation
// over commonDrugNames, since patternSpec has no notion of an "is one of
// these" match list beyond a regex.
func drugNamePattern() string {
	escaped := make([]string, len(commonDrugNames))
	for i, name := range commonDrugNames {
		escaped[i] = regexp.QuoteMeta(name)
	}
	return `(?i)\b(?:` + strings.Join(escaped, "|") + `)\b`
}

// builtinSpecs is the default pattern table, covering both the consumer PII
// types and the structured-secret / healthcare identifier types the domain
// stack's document projector and neural layer also operate over.
var builtinSpecs = []patternSpec{
	{
		expr:            `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`,
		entityType:      TypeEmailAddress,
		baseScore:       0.9,
		contextKeywords: []string{"email", "e-mail", "contact", "reach"},
		denyList:        []string{"notanemail", "example@example", "user@domain"},
	},
	{
		expr:            `(\+?1?[\-.\s]?)?\(?([0-9]{3})\)?[\-.\s]?([0-9]{3})[\-.\s]?([0-9]{4})\b`,
		entityType:      TypePhoneNumber,
		baseScore:       0.55,
		contextKeywords: []string{"phone", "call", "tel", "mobile", "cell", "fax"},
	},
	{
		expr:            `\b(?:\d{3}-\d{2}-\d{4}|\d{9})\b`,
		entityType:      TypeUSSSN,
		baseScore:       0.6,
		contextKeywords: []string{"ssn", "social security", "social-security"},
	},
	{
		expr:            `\b(?:\d{4}[\-\s]?){3}\d{4}\b`,
		entityType:      TypeCreditCard,
		baseScore:       0.65,
		contextKeywords: []string{"card", "visa", "mastercard", "amex", "credit"},
	},
	{
		expr:       `\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`,
		entityType: TypeIBAN,
		baseScore:  0.75,
		contextKeywords: []string{"iban", "account", "wire", "transfer"},
	},
	{
		// 8-character BIC: bank(4) + country(2) + location(2). The trailing
		// \b means this never matches the first 8 characters of an 11-char
		// code, since the 9th character is a word character too.
		expr:            `\b[A-Z]{6}[A-Z0-9]{2}\b`,
		entityType:      TypeSWIFTCode,
		baseScore:       0.5,
		contextKeywords: []string{"swift", "bic", "bank"},
	},
	{
		// 11-character BIC: the 8-character form plus a branch code. Scored
		// higher than the 8-character form since the extra 3 characters
		// narrow the false-positive space considerably.
		expr:            `\b[A-Z]{6}[A-Z0-9]{2}[A-Z0-9]{3}\b`,
		entityType:      TypeSWIFTCode,
		baseScore:       0.7,
		contextKeywords: []string{"swift", "bic", "bank"},
	},
	{
		expr:            `\b\d{5}(?:-\d{4})?\b`,
		entityType:      TypePostalCode,
		baseScore:       0.3,
		contextKeywords: []string{"zip", "postal", "address"},
	},
	{
		expr: `(?:(?:[0-9]{1,3}\.){3}[0-9]{1,3})` +
			`|(?:(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4})`,
		entityType:      TypeIPAddress,
		baseScore:       0.65,
		contextKeywords: []string{"ip", "address", "host", "server"},
		denyList:        []string{"localhost", "0.0.0.0"},
	},
	{
		expr:            `\bhttps?://[^\s"'<>]+`,
		entityType:      TypeURL,
		baseScore:       0.7,
		contextKeywords: []string{"link", "url", "visit"},
	},
	{
		expr:            `(?i)(?:api[_\-]?key|secret|bearer)[\s"':=]+([a-zA-Z0-9_\-.]{20,})`,
		entityType:      TypeAPIKey,
		baseScore:       0.85,
		contextKeywords: []string{"api", "key", "secret", "token"},
	},
	{
		expr:            `\bAKIA[0-9A-Z]{16}\b`,
		entityType:      TypeAWSAccessKey,
		baseScore:       0.95,
		contextKeywords: []string{"aws", "access key"},
	},
	{
		expr: `(?i)\b(?:postgres(?:ql)?|mysql|mongodb|redis|amqp)://[^\s"'<>]+`,
		entityType:      TypeConnectionString,
		baseScore:       0.9,
		contextKeywords: []string{"database", "connection", "dsn"},
	},
	{
		expr:            `-----BEGIN (?:RSA |OPENSSH |EC |DSA )?PRIVATE KEY-----`,
		entityType:      TypeSSHPrivateKey,
		baseScore:       0.98,
		contextKeywords: []string{"key", "ssh", "private"},
	},
	{
		expr:            `\b\d{10}\b`,
		entityType:      TypeNPINumber,
		baseScore:       0.35,
		contextKeywords: []string{"npi", "national provider"},
	},
	{
		expr:            `\b[A-Z]{2}\d{7}\b`,
		entityType:      TypeDEANumber,
		baseScore:       0.6,
		contextKeywords: []string{"dea", "registration"},
	},
	{
		// Prefixed policy/claim forms ("POL-123456", "CLAIM 9988776", "MBR:
		// AB123456") are far less ambiguous than a bare alphanumeric run.
		expr:            `(?i)\b(?:policy|pol|claim|member|mbr)[\s:#-]*[A-Z0-9]{5,15}\b`,
		entityType:      TypeInsuranceID,
		baseScore:       0.7,
		contextKeywords: []string{"insurance", "policy", "member id", "payer"},
	},
	{
		expr:            `\b[A-Z][A-Z0-9]{5,14}\b`,
		entityType:      TypeInsuranceID,
		baseScore:       0.4,
		contextKeywords: []string{"insurance", "policy", "member id", "payer"},
	},
	{
		expr:            `\b[A-TV-Z][0-9][0-9AB]\.?[0-9A-Z]{0,4}\b`,
		entityType:      TypeICD10Code,
		baseScore:       0.45,
		contextKeywords: []string{"icd", "diagnosis", "icd-10"},
	},
	{
		expr:            drugNamePattern(),
		entityType:      TypeDrugName,
		baseScore:       0.6,
		contextKeywords: []string{"medication", "prescribed", "dose", "dosage", "mg", "drug", "taking"},
	},
	{
		// ddd-ddd-ddd shape: structurally distinctive enough to stand on
		// its own without a context keyword.
		expr:            `\b\d{3}-\d{3}-\d{3}\b`,
		entityType:      TypeMedicalRecordNumber,
		baseScore:       0.4,
		contextKeywords: []string{"mrn", "medical record", "chart"},
	},
	{
		// Bare 7-10 digit run: indistinguishable from an arbitrary number on
		// its own, so the base score is deliberately low; a context keyword
		// in the surrounding window is what makes this fire in practice.
		expr:            `\b\d{7,10}\b`,
		entityType:      TypeMedicalRecordNumber,
		baseScore:       0.2,
		contextKeywords: []string{"mrn", "medical record", "chart"},
	},
	{
		expr: `\b(?:19|20)\d{2}[-/](?:0[1-9]|1[0-2])[-/](?:0[1-9]|[12]\d|3[01])\b` +
			`|\b(?:0[1-9]|1[0-2])[-/](?:0[1-9]|[12]\d|3[01])[-/](?:19|20)\d{2}\b`,
		entityType:      TypeDateTime,
		baseScore:       0.55,
		contextKeywords: []string{"date", "born", "dob", "birth", "admitted", "discharged"},
	},
	{
		expr:            `(?i)@[A-Za-z0-9_]{3,30}\b`,
		entityType:      TypeUsername,
		baseScore:       0.45,
		contextKeywords: []string{"username", "handle", "user"},
	},
}

// Builtins returns the compiled built-in pattern table.
func Builtins() []Pattern {
	return compile(builtinSpecs)
}
