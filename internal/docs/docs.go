// Package docs serves the embedded CloudWatch Logs Insights query language
// reference. The table is decoded once and never mutated.
package docs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
)

//go:embed query_syntax.yaml
var referenceYAML []byte

// Element types reported in matched elements and search results.
const (
	ElementCommand          = "command"
	ElementFunctionCategory = "function_category"
)

// Reference is the decoded query syntax table.
type Reference struct {
	Overview        Overview           `yaml:"overview" json:"overview"`
	Commands        []Command          `yaml:"commands" json:"commands"`
	Functions       []FunctionCategory `yaml:"functions" json:"functions"`
	Examples        []ExampleSet       `yaml:"examples" json:"examples"`
	Troubleshooting Troubleshooting    `yaml:"troubleshooting" json:"troubleshooting"`
}

// Overview holds the general description and rules of the language.
type Overview struct {
	Title         string   `yaml:"title" json:"title"`
	Description   string   `yaml:"description" json:"description"`
	BestPractices []string `yaml:"best_practices" json:"best_practices"`
	SyntaxRules   []string `yaml:"syntax_rules" json:"syntax_rules"`
}

// CommandExample is a worked example attached to a command.
type CommandExample struct {
	Title       string `yaml:"title" json:"title"`
	Query       string `yaml:"query" json:"query"`
	Explanation string `yaml:"explanation" json:"explanation"`
}

// Command documents one query command. Details holds the command-specific
// sections (operators, modes, aggregation functions and so on).
type Command struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Syntax      string                 `yaml:"syntax"`
	Examples    []CommandExample       `yaml:"examples"`
	Limitations []string               `yaml:"limitations"`
	Tips        []string               `yaml:"tips"`
	Details     map[string]interface{} `yaml:",inline"`
}

// MarshalJSON flattens Details next to the fixed fields.
func (c Command) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.Details)+6)
	for k, v := range c.Details {
		out[k] = v
	}
	out["name"] = c.Name
	out["description"] = c.Description
	out["syntax"] = c.Syntax
	if len(c.Examples) > 0 {
		out["examples"] = c.Examples
	}
	if len(c.Limitations) > 0 {
		out["limitations"] = c.Limitations
	}
	if len(c.Tips) > 0 {
		out["tips"] = c.Tips
	}
	return json.Marshal(out)
}

// FunctionExample is an expression or query using a function category.
type FunctionExample struct {
	Expression  string `yaml:"expression" json:"expression,omitempty"`
	Query       string `yaml:"query" json:"query,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
	Result      string `yaml:"result" json:"result,omitempty"`
}

// FunctionCategory documents a group of functions or operators.
type FunctionCategory struct {
	Category    string                 `yaml:"category"`
	Description string                 `yaml:"description"`
	Examples    []FunctionExample      `yaml:"examples"`
	Details     map[string]interface{} `yaml:",inline"`
}

// MarshalJSON flattens Details next to the fixed fields.
func (f FunctionCategory) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(f.Details)+3)
	for k, v := range f.Details {
		out[k] = v
	}
	out["category"] = f.Category
	out["description"] = f.Description
	if len(f.Examples) > 0 {
		out["examples"] = f.Examples
	}
	return json.Marshal(out)
}

// QueryExample is a complete query for a common use case.
type QueryExample struct {
	Title   string `yaml:"title" json:"title"`
	Query   string `yaml:"query" json:"query"`
	UseCase string `yaml:"use_case" json:"use_case"`
}

// ExampleSet groups query examples under a category name.
type ExampleSet struct {
	Category string         `yaml:"category" json:"category"`
	Queries  []QueryExample `yaml:"queries" json:"queries"`
}

// Issue is a known problem with its remedies.
type Issue struct {
	Issue     string   `yaml:"issue" json:"issue"`
	Solutions []string `yaml:"solutions" json:"solutions"`
}

// Troubleshooting lists common issues.
type Troubleshooting struct {
	CommonIssues []Issue `yaml:"common_issues" json:"common_issues"`
}

func parseReference(data []byte) (*Reference, error) {
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("failed to decode query syntax reference: %w", err)
	}
	if len(ref.Commands) == 0 || len(ref.Functions) == 0 {
		return nil, fmt.Errorf("query syntax reference has no commands or functions")
	}
	return &ref, nil
}

// Element is a flattened view of a command or function category.
type Element struct {
	Name            string      `json:"name"`
	ElementType     string      `json:"element_type"`
	Description     string      `json:"description"`
	Syntax          string      `json:"syntax"`
	Examples        interface{} `json:"examples"`
	Limitations     []string    `json:"limitations"`
	RelatedElements []string    `json:"related_elements"`
}

// Documentation is the result of every lookup.
type Documentation struct {
	QueryType       string                 `json:"query_type"`
	Content         interface{}            `json:"content"`
	MatchedElements []Element              `json:"matched_elements"`
	TotalElements   int                    `json:"total_elements"`
	SearchMetadata  map[string]interface{} `json:"search_metadata"`
}

// SearchHit is one entry of a search result.
type SearchHit struct {
	Type          string      `json:"type"`
	Name          string      `json:"name"`
	Documentation interface{} `json:"documentation"`
}

// Validation is the outcome of ValidateQuery.
type Validation struct {
	IsValid     bool     `json:"is_valid"`
	Warnings    []string `json:"warnings"`
	Errors      []string `json:"errors"`
	Suggestions []string `json:"suggestions"`
}

// Library answers documentation lookups against the embedded reference.
type Library struct {
	ref     *Reference
	version string
}

// New decodes the embedded reference.
func New(version string) (*Library, error) {
	ref, err := parseReference(referenceYAML)
	if err != nil {
		return nil, err
	}
	return &Library{ref: ref, version: version}, nil
}

// Reference returns the decoded table. Callers must not modify it.
func (l *Library) Reference() *Reference {
	return l.ref
}

// CommandNames lists command names in table order.
func (l *Library) CommandNames() []string {
	names := make([]string, 0, len(l.ref.Commands))
	for _, c := range l.ref.Commands {
		names = append(names, c.Name)
	}
	return names
}

// FunctionCategoryNames lists function categories in table order.
func (l *Library) FunctionCategoryNames() []string {
	names := make([]string, 0, len(l.ref.Functions))
	for _, f := range l.ref.Functions {
		names = append(names, f.Category)
	}
	return names
}

// ExampleCategoryNames lists example categories in table order.
func (l *Library) ExampleCategoryNames() []string {
	names := make([]string, 0, len(l.ref.Examples))
	for _, e := range l.ref.Examples {
		names = append(names, e.Category)
	}
	return names
}

// Overview returns the complete reference.
func (l *Library) Overview() *Documentation {
	elements := make([]Element, 0, len(l.ref.Commands)+len(l.ref.Functions))
	for _, c := range l.ref.Commands {
		elements = append(elements, commandElement(c))
	}
	for _, f := range l.ref.Functions {
		elements = append(elements, functionElement(f))
	}
	return &Documentation{
		QueryType:       "overview",
		Content:         l.ref,
		MatchedElements: elements,
		TotalElements:   len(elements),
		SearchMetadata: l.metadata("complete", map[string]interface{}{
			"total_commands":            len(l.ref.Commands),
			"total_function_categories": len(l.ref.Functions),
		}),
	}
}

// Command returns the documentation of one command, matched exactly.
func (l *Library) Command(name string) (*Documentation, error) {
	for _, c := range l.ref.Commands {
		if c.Name != name {
			continue
		}
		return &Documentation{
			QueryType:       "command",
			Content:         map[string]interface{}{c.Name: c},
			MatchedElements: []Element{commandElement(c)},
			TotalElements:   1,
			SearchMetadata:  l.metadata("command_specific", map[string]interface{}{"command_name": name}),
		}, nil
	}
	return nil, errors.NotFound("Command '%s' not found in documentation", name).
		WithDetails(map[string]interface{}{"available_commands": l.CommandNames()})
}

// FunctionCategory returns the documentation of one function category.
func (l *Library) FunctionCategory(name string) (*Documentation, error) {
	for _, f := range l.ref.Functions {
		if f.Category != name {
			continue
		}
		return &Documentation{
			QueryType:       "function",
			Content:         map[string]interface{}{f.Category: f},
			MatchedElements: []Element{functionElement(f)},
			TotalElements:   1,
			SearchMetadata:  l.metadata("function_specific", map[string]interface{}{"function_category": name}),
		}, nil
	}
	return nil, errors.NotFound("Function category '%s' not found in documentation", name).
		WithDetails(map[string]interface{}{"available_function_categories": l.FunctionCategoryNames()})
}

// Search matches term case-insensitively against names and descriptions.
// Commands come first, then function categories, each in table order.
// A limit of zero or less returns every match.
func (l *Library) Search(term string, limit int) *Documentation {
	needle := strings.ToLower(term)
	matches := func(name, description string) bool {
		return strings.Contains(strings.ToLower(name), needle) ||
			strings.Contains(strings.ToLower(description), needle)
	}

	var hits []SearchHit
	var elements []Element
	for _, c := range l.ref.Commands {
		if matches(c.Name, c.Description) {
			hits = append(hits, SearchHit{Type: ElementCommand, Name: c.Name, Documentation: c})
			elements = append(elements, commandElement(c))
		}
	}
	for _, f := range l.ref.Functions {
		if matches(f.Category, f.Description) {
			hits = append(hits, SearchHit{Type: ElementFunctionCategory, Name: f.Category, Documentation: f})
			elements = append(elements, functionElement(f))
		}
	}

	total := len(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
		elements = elements[:limit]
	}
	if hits == nil {
		hits = []SearchHit{}
		elements = []Element{}
	}

	return &Documentation{
		QueryType:       "search",
		Content:         map[string]interface{}{"search_results": hits},
		MatchedElements: elements,
		TotalElements:   len(elements),
		SearchMetadata: l.metadata("search_results", map[string]interface{}{
			"search_term":      term,
			"total_matches":    total,
			"returned_matches": len(elements),
		}),
	}
}

// ExampleQueries returns the queries of an example category, or an empty
// list when the category is unknown.
func (l *Library) ExampleQueries(category string) []QueryExample {
	for _, e := range l.ref.Examples {
		if e.Category == category {
			return e.Queries
		}
	}
	return []QueryExample{}
}

// Examples wraps ExampleQueries as a Documentation result.
func (l *Library) Examples(category string) *Documentation {
	examples := l.ExampleQueries(category)
	return &Documentation{
		QueryType:       "examples",
		Content:         map[string]interface{}{category: examples},
		MatchedElements: []Element{},
		TotalElements:   len(examples),
		SearchMetadata:  l.metadata("examples", map[string]interface{}{"example_category": category}),
	}
}

// BestPractices returns the best practice list.
func (l *Library) BestPractices() *Documentation {
	return &Documentation{
		QueryType:       "best_practices",
		Content:         map[string]interface{}{"best_practices": l.ref.Overview.BestPractices},
		MatchedElements: []Element{},
		TotalElements:   len(l.ref.Overview.BestPractices),
		SearchMetadata:  l.metadata("best_practices", nil),
	}
}

// Troubleshooting returns the common issues guide.
func (l *Library) Troubleshooting() *Documentation {
	return &Documentation{
		QueryType:       "troubleshooting",
		Content:         map[string]interface{}{"troubleshooting": l.ref.Troubleshooting},
		MatchedElements: []Element{},
		TotalElements:   len(l.ref.Troubleshooting.CommonIssues),
		SearchMetadata:  l.metadata("troubleshooting", nil),
	}
}

// ValidateQuery performs a shallow check of a query: it must not be empty,
// each piped segment should start with a known command, and a limit is
// recommended. Command names compare case-insensitively.
func (l *Library) ValidateQuery(query string) *Validation {
	v := &Validation{IsValid: true, Warnings: []string{}, Errors: []string{}, Suggestions: []string{}}
	if strings.TrimSpace(query) == "" {
		v.IsValid = false
		v.Errors = append(v.Errors, "Query cannot be empty")
		return v
	}

	known := make(map[string]struct{}, len(l.ref.Commands))
	for _, c := range l.ref.Commands {
		known[strings.ToLower(c.Name)] = struct{}{}
	}
	if strings.Contains(query, "|") {
		for _, segment := range strings.Split(query, "|") {
			fields := strings.Fields(segment)
			if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
				continue
			}
			name := strings.ToLower(fields[0])
			if _, ok := known[name]; !ok {
				v.Warnings = append(v.Warnings, fmt.Sprintf("Command %q may not be recognized", name))
			}
		}
	}

	if !strings.Contains(strings.ToLower(query), "limit") {
		v.Suggestions = append(v.Suggestions, "Consider adding a limit command to avoid consuming too many tokens")
	}
	return v
}

// Stats summarizes the size of the reference.
type Stats struct {
	TotalCommands           int      `json:"total_commands"`
	TotalFunctionCategories int      `json:"total_function_categories"`
	TotalExamples           int      `json:"total_examples"`
	ServiceVersion          string   `json:"service_version"`
	DocumentationSections   []string `json:"documentation_sections"`
}

// SummaryStats counts commands, function categories and examples.
func (l *Library) SummaryStats() Stats {
	total := 0
	for _, e := range l.ref.Examples {
		total += len(e.Queries)
	}
	return Stats{
		TotalCommands:           len(l.ref.Commands),
		TotalFunctionCategories: len(l.ref.Functions),
		TotalExamples:           total,
		ServiceVersion:          l.version,
		DocumentationSections:   []string{"overview", "commands", "functions", "examples", "troubleshooting"},
	}
}

func (l *Library) metadata(kind string, extra map[string]interface{}) map[string]interface{} {
	m := map[string]interface{}{
		"service_version":    l.version,
		"documentation_type": kind,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func commandElement(c Command) Element {
	examples := c.Examples
	if examples == nil {
		examples = []CommandExample{}
	}
	limitations := c.Limitations
	if limitations == nil {
		limitations = []string{}
	}
	return Element{
		Name:            c.Name,
		ElementType:     ElementCommand,
		Description:     c.Description,
		Syntax:          c.Syntax,
		Examples:        examples,
		Limitations:     limitations,
		RelatedElements: []string{},
	}
}

func functionElement(f FunctionCategory) Element {
	examples := f.Examples
	if examples == nil {
		examples = []FunctionExample{}
	}
	return Element{
		Name:            f.Category,
		ElementType:     ElementFunctionCategory,
		Description:     f.Description,
		Examples:        examples,
		Limitations:     []string{},
		RelatedElements: []string{},
	}
}
