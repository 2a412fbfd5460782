// Package vocabulary resolves vocabulary URIs to field schemas and
// decides which vocabularies a responder is willing to serve.
package vocabulary

import "github.com/vqp-project/responder/core"

// builtin holds the shipped vqp:<domain>:v1 schemas. A responder may
// extend this set through a VocabularyPort delegate for anything not
// listed here.
var builtin = map[string]*core.VocabularySchema{
	"vqp:identity:v1": {
		URI:   "vqp:identity:v1",
		Title: "Identity",
		Properties: map[string]core.FieldSchema{
			"age":          {Type: core.FieldInteger, Minimum: f(0)},
			"date_of_birth": {Type: core.FieldString, Pattern: `^\d{4}-\d{2}-\d{2}$`},
			"country":      {Type: core.FieldString},
			"region":       {Type: core.FieldString},
			"is_verified":  {Type: core.FieldBoolean},
		},
	},
	"vqp:financial:v1": {
		URI:   "vqp:financial:v1",
		Title: "Financial",
		Properties: map[string]core.FieldSchema{
			"annual_income":     {Type: core.FieldNumber, Minimum: f(0)},
			"credit_score":      {Type: core.FieldInteger, Minimum: f(300), Maximum: f(850)},
			"employment_status": {Type: core.FieldString, Enum: []string{"employed", "self_employed", "unemployed", "retired"}},
			"debt_to_income":    {Type: core.FieldNumber, Minimum: f(0)},
		},
	},
	"vqp:health:v1": {
		URI:   "vqp:health:v1",
		Title: "Health",
		Properties: map[string]core.FieldSchema{
			"vaccinations_completed": {Type: core.FieldArray, Items: &core.FieldSchema{Type: core.FieldString}},
			"blood_type":             {Type: core.FieldString},
			"has_condition":          {Type: core.FieldBoolean},
		},
	},
	"vqp:metrics:v1": {
		URI:   "vqp:metrics:v1",
		Title: "Device Metrics",
		Properties: map[string]core.FieldSchema{
			"cpu_utilization": {Type: core.FieldNumber, Minimum: f(0), Maximum: f(100)},
			"uptime_seconds":  {Type: core.FieldInteger, Minimum: f(0)},
			"firmware_version": {Type: core.FieldString},
		},
	},
	"vqp:academic:v1": {
		URI:   "vqp:academic:v1",
		Title: "Academic",
		Properties: map[string]core.FieldSchema{
			"degree_level":  {Type: core.FieldString, Enum: []string{"none", "associate", "bachelor", "master", "doctorate"}},
			"gpa":           {Type: core.FieldNumber, Minimum: f(0), Maximum: f(4)},
			"institution":   {Type: core.FieldString},
			"graduation_year": {Type: core.FieldInteger},
		},
	},
	"vqp:compliance:v1": {
		URI:   "vqp:compliance:v1",
		Title: "Compliance",
		Properties: map[string]core.FieldSchema{
			"kyc_completed":   {Type: core.FieldBoolean},
			"aml_risk_rating": {Type: core.FieldString, Enum: []string{"low", "medium", "high"}},
			"sanctioned":      {Type: core.FieldBoolean},
		},
	},
	"vqp:iot:v1": {
		URI:   "vqp:iot:v1",
		Title: "IoT Device",
		Properties: map[string]core.FieldSchema{
			"device_id":        {Type: core.FieldString},
			"last_seen_seconds": {Type: core.FieldInteger, Minimum: f(0)},
			"battery_percent":   {Type: core.FieldNumber, Minimum: f(0), Maximum: f(100)},
		},
	},
	"vqp:supply-chain:v1": {
		URI:   "vqp:supply-chain:v1",
		Title: "Supply Chain",
		Properties: map[string]core.FieldSchema{
			"origin_country":    {Type: core.FieldString},
			"certified_organic": {Type: core.FieldBoolean},
			"batch_id":          {Type: core.FieldString},
			"temperature_breach": {Type: core.FieldBoolean},
		},
	},
}

func f(v float64) *float64 { return &v }
