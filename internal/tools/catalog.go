// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"sort"
	"strings"
)

// =============================================================================
// TOOL DEFINITION
// =============================================================================

// Tool is one entry of the agent's tool catalog.
type Tool struct {
	// Name is the identifier the backend reports in tool_chosen events.
	Name string

	// Description is the backend's own description of the tool.
	Description string

	// Summary is the short text shown to the reader.
	Summary string

	// Schema defines the tool's arguments.
	Schema Schema
}

// ShortDescription returns Summary, or the first sentence of Description.
func (t *Tool) ShortDescription() string {
	if t.Summary != "" {
		return t.Summary
	}
	if idx := strings.Index(t.Description, ". "); idx != -1 {
		return t.Description[:idx+1]
	}
	return t.Description
}

// Schema defines a tool's arguments.
type Schema struct {
	Parameters []Parameter
}

// Parameter defines a single tool argument.
type Parameter struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// =============================================================================
// TOOL REGISTRY
// =============================================================================

// Registry holds the known tools.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry creates a registry holding the built-in catalog.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]*Tool)}
	r.RegisterBuiltins()
	return r
}

// RegisterBuiltins registers every tool in Builtins.
func (r *Registry) RegisterBuiltins() {
	for _, t := range Builtins {
		r.Register(t)
	}
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool *Tool) {
	r.tools[tool.Name] = tool
}

// Get retrieves a tool by name. Lookup ignores case and surrounding space.
func (r *Registry) Get(name string) *Tool {
	if t, ok := r.tools[name]; ok {
		return t
	}
	return r.tools[strings.ToLower(strings.TrimSpace(name))]
}

// All returns all tools sorted by name.
func (r *Registry) All() []*Tool {
	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Label returns the display text for a tool notice. Unknown tools show their
// raw name.
func (r *Registry) Label(name string) string {
	if t := r.Get(name); t != nil && t.Summary != "" {
		return t.Name + " (" + t.Summary + ")"
	}
	return name
}

// =============================================================================
// BUILT-IN CATALOG
// =============================================================================

func queryArg(desc string) Schema {
	return Schema{Parameters: []Parameter{
		{Name: "query", Type: "string", Required: true, Description: desc},
	}}
}

// Builtins is the catalog of tools the librarian backend exposes.
var Builtins = []*Tool{
	{
		Name:        "date_time",
		Description: "A tool that returns the current date and time in ISO 8601 format.",
		Summary:     "Shows the local date and time.",
	},
	{
		Name: "arxiv",
		Description: "A wrapper around Arxiv.org Useful for when you need to answer questions about Physics, " +
			"Mathematics, Computer Science, Quantitative Biology, Quantitative Finance, Statistics, Electrical " +
			"Engineering, and Economics from scientific articles on arxiv.org. Input should be a search query.",
		Summary: "Finds scholarly articles in physics, mathematics, computing, biology, finance and economics.",
		Schema:  queryArg("search query to look up"),
	},
	{
		Name: "duckduckgo_results_json",
		Description: "A wrapper around Duck Duck Go Search. Useful for when you need to answer questions about " +
			"current events. Input should be a search query.",
		Summary: "DuckDuckGo search, good for current events.",
		Schema:  queryArg("search query to look up"),
	},
	{
		Name: "youtube_search",
		Description: "search for youtube videos associated with a person. the input to this tool should be a " +
			"comma separated list, the first part contains a person name and the second a number that is the " +
			"maximum number of video results to return aka num_results. the second part is optional",
		Summary: "Finds YouTube videos about a person. Input is a name and an optional result count.",
		Schema:  queryArg("The query to search for on YouTube."),
	},
	{
		Name: "ncl_search",
		Description: "A tool for searching the Taiwan National Central Library(NCL, 國家圖書館) catalog.The search " +
			"results are returned in a string, containing the title, author, and link of the book.The title and " +
			"author are returned in the same language as the query, and the link is the URL of the book.",
		Summary: "Searches the National Central Library catalog for titles, authors and links.",
		Schema:  queryArg("The query to search the NCL catalog."),
	},
	{
		Name: "wikipedia",
		Description: "A wrapper around Wikipedia. Useful for when you need to answer general questions about " +
			"people, places, companies, facts, historical events, or other subjects. Input should be a search query.",
		Summary: "Looks up people, places, companies, facts and historical events.",
		Schema:  queryArg("query to look up on wikipedia"),
	},
	{
		Name: "google_search",
		Description: "A wrapper around Google Search. Useful for when you need to answer questions about " +
			"current events. Input should be a search query.",
		Summary: "Google search, good for current events.",
		Schema:  queryArg("The query to search for on Google."),
	},
	{
		Name: "google_books",
		Description: "A tool that searches the Google Books API. Useful for when you need to answer general " +
			"inquiries about books of certain topics and generate recommendation based off of key wordsInput " +
			"should be a query string",
		Summary: "Finds books on a topic and suggests reading.",
		Schema:  queryArg("query to look up on google books"),
	},
	{
		Name: "open_weather_map",
		Description: "A wrapper around OpenWeatherMap API. Useful for fetching current weather information for " +
			"a specified location. Input should be a location string (e.g. London,GB).",
		Summary: "Current weather for a location such as London,GB.",
		Schema: Schema{Parameters: []Parameter{
			{Name: "location", Type: "string", Required: true, Description: "The location to get the weather for."},
		}},
	},
}
