package vocabulary

import "strings"

// FlatMapping treats a vocabulary field name as a dotted vault path
// verbatim: "financial.annual_income" maps to
// []string{"financial", "annual_income"} and back.
type FlatMapping struct{}

// ToVaultPath implements core.MappingStrategy.
func (FlatMapping) ToVaultPath(field string, vocabURI string) []string {
	return strings.Split(field, ".")
}

// ToVocabularyField implements core.MappingStrategy.
func (FlatMapping) ToVocabularyField(segments []string, vocabURI string) string {
	return strings.Join(segments, ".")
}

// standardPrefixes assigns each built-in vocabulary its own top-level
// vault namespace, so the same field name ("age") in two vocabularies
// never collides in storage.
var standardPrefixes = map[string]string{
	"vqp:identity:v1":     "personal",
	"vqp:financial:v1":    "financial",
	"vqp:health:v1":       "health",
	"vqp:metrics:v1":      "system",
	"vqp:academic:v1":     "academic",
	"vqp:compliance:v1":   "compliance",
	"vqp:iot:v1":          "iot",
	"vqp:supply-chain:v1": "supply_chain",
}

// StandardMapping prefixes a field with its vocabulary's namespace
// before splitting on '.'. Unknown vocabularies fall back to
// FlatMapping's behavior.
type StandardMapping struct{}

// ToVaultPath implements core.MappingStrategy.
func (StandardMapping) ToVaultPath(field string, vocabURI string) []string {
	prefix, ok := standardPrefixes[vocabURI]
	if !ok {
		return FlatMapping{}.ToVaultPath(field, vocabURI)
	}
	return append([]string{prefix}, strings.Split(field, ".")...)
}

// ToVocabularyField implements core.MappingStrategy.
func (StandardMapping) ToVocabularyField(segments []string, vocabURI string) string {
	prefix, ok := standardPrefixes[vocabURI]
	if !ok || len(segments) == 0 || segments[0] != prefix {
		return FlatMapping{}.ToVocabularyField(segments, vocabURI)
	}
	return strings.Join(segments[1:], ".")
}
