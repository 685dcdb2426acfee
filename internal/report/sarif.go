package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ppiankov/leakspectre/internal/scanner"
)

const (
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion = "2.1.0"

	sarifRuleHighEntropy = "leakspectre/HIGH_ENTROPY_STRING"
	sarifRulePrivateKey  = "leakspectre/PRIVATE_KEY"
)

type SARIFReporter struct {
	writer io.Writer
}

func NewSARIFReporter(w io.Writer) *SARIFReporter {
	return &SARIFReporter{writer: w}
}

type sarifLog struct {
	Schema  string     `json:"$schema,omitempty"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name,omitempty"`
	ShortDescription sarifMessage `json:"shortDescription,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level,omitempty"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation *sarifPhysicalLocation `json:"physicalLocation,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

type sarifRuleMeta struct {
	Name        string
	Description string
	Level       string
}

var sarifRules = map[string]sarifRuleMeta{
	sarifRuleHighEntropy: {
		Name:        "HighEntropyString",
		Description: "String whose Shannon entropy exceeds the configured threshold",
		Level:       "warning",
	},
	sarifRulePrivateKey: {
		Name:        "PrivateKey",
		Description: "PEM private key marker found in object content",
		Level:       "error",
	},
}

func (r *SARIFReporter) Generate(data Data) error {
	var results []sarifResult
	usedRules := make(map[string]sarifRule)

	for _, f := range data.Result.Findings {
		ruleID := sarifRuleHighEntropy
		message := fmt.Sprintf("High-entropy string (%.2f bits over %d symbols): %s", f.Entropy, f.Alphabet, f.Snippet)
		if f.Reason == scanner.ReasonPrivateKey {
			ruleID = sarifRulePrivateKey
			message = fmt.Sprintf("Private key marker: %s", f.Snippet)
		}

		location := sarifLocation{
			PhysicalLocation: &sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: s3URI(data.Config.Bucket, f.Key)},
				Region:           &sarifRegion{StartLine: f.Line},
			},
		}

		results = appendResult(results, usedRules, ruleID, message, []sarifLocation{location})
	}

	return r.writeSARIF(data.Tool, data.Version, results, usedRules)
}

func (r *SARIFReporter) writeSARIF(toolName, toolVersion string, results []sarifResult, usedRules map[string]sarifRule) error {
	ruleIDs := make([]string, 0, len(usedRules))
	for id := range usedRules {
		ruleIDs = append(ruleIDs, id)
	}
	sort.Strings(ruleIDs)

	rules := make([]sarifRule, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		rules = append(rules, usedRules[id])
	}

	log := sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:    toolName,
					Version: toolVersion,
					Rules:   rules,
				},
			},
			Results: results,
		}},
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(log)
}

func appendResult(results []sarifResult, usedRules map[string]sarifRule, ruleID, message string, locations []sarifLocation) []sarifResult {
	rule := sarifRule{ID: ruleID}
	level := "warning"
	if meta, ok := sarifRules[ruleID]; ok {
		rule.Name = meta.Name
		rule.ShortDescription = sarifMessage{Text: meta.Description}
		level = meta.Level
	}
	if message == "" {
		message = rule.ShortDescription.Text
	}
	if _, exists := usedRules[ruleID]; !exists {
		usedRules[ruleID] = rule
	}

	results = append(results, sarifResult{
		RuleID:    ruleID,
		Level:     level,
		Message:   sarifMessage{Text: message},
		Locations: locations,
	})

	return results
}

func s3URI(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		cleaned = append(cleaned, strings.TrimPrefix(part, "/"))
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "s3://" + strings.Join(cleaned, "/")
}
