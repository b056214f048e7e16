package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultOpenFDAURL is the OpenFDA drug label endpoint.
	DefaultOpenFDAURL = "https://api.fda.gov/drug/label.json"

	drugFieldMaxChars = 500
)

// DrugInfoTool looks up medication labels on OpenFDA and falls back to a
// web search when no label is found.
type DrugInfoTool struct {
	web      *webClient
	baseURL  string
	fallback SearchBackend
}

// NewDrugInfoTool creates the drug lookup tool. fallback may be nil.
func NewDrugInfoTool(baseURL string, fallback SearchBackend, timeout time.Duration) *DrugInfoTool {
	if baseURL == "" {
		baseURL = DefaultOpenFDAURL
	}
	return &DrugInfoTool{web: newWebClient(timeout), baseURL: baseURL, fallback: fallback}
}

func (t *DrugInfoTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: NameDrugInfo,
		Description: "Check drug interactions, side effects and basic medication information. " +
			"Use this when patients mention taking medications or ask about medicines.",
		Parameters: []ToolParameter{
			{Name: "drug_name", ParamType: TypeString, Description: "Name of the medication", Required: true},
		},
	}
}

// drugLabelResponse keeps label fields undecoded so one odd field cannot
// discard the rest of the label.
type drugLabelResponse struct {
	Results []map[string]any `json:"results"`
}

// drugSummary is rendered as indented JSON for the model.
type drugSummary struct {
	DrugName    string `json:"drug_name"`
	Warnings    string `json:"warnings"`
	Indications string `json:"indications"`
}

func (t *DrugInfoTool) Execute(ctx context.Context, args Args) (ToolResult, error) {
	drug := args.String("drug_name")

	summary, err := t.label(ctx, drug)
	if err == nil && summary != nil {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return FailureResultf("Unable to retrieve drug information for %s. Please consult a pharmacist.", drug), nil
		}
		return SuccessResult(string(out)), nil
	}

	if t.fallback == nil {
		if err == nil {
			return SuccessResult(t.unavailable(drug)), nil
		}
		return ToolResult{}, err
	}

	results, err := t.fallback.Search(ctx, drug+" medication side effects interactions", medicalSearchLimit)
	if err != nil {
		return ToolResult{}, err
	}
	if len(results) == 0 {
		return SuccessResult(t.unavailable(drug)), nil
	}
	return SuccessResult(fmt.Sprintf("Drug Information Search Results for %s:\n\n%s", drug, formatSearchResults(results))), nil
}

func (t *DrugInfoTool) Degrade(args Args, _ error) string {
	return t.unavailable(args.String("drug_name"))
}

func (t *DrugInfoTool) unavailable(drug string) string {
	return fmt.Sprintf("Unable to retrieve drug information for %s. Please consult a pharmacist.", drug)
}

// label fetches the first matching label. It returns (nil, nil) when OpenFDA
// has no label for the drug.
func (t *DrugInfoTool) label(ctx context.Context, drug string) (*drugSummary, error) {
	term := url.QueryEscape(`"` + strings.ReplaceAll(drug, `"`, "") + `"`)
	reqURL := fmt.Sprintf("%s?search=openfda.brand_name:%s+openfda.generic_name:%s&limit=1", t.baseURL, term, term)

	var resp drugLabelResponse
	if err := t.web.getJSON(ctx, reqURL, &resp); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	label := resp.Results[0]
	return &drugSummary{
		DrugName:    drug,
		Warnings:    firstTruncated(label["warnings"], drugFieldMaxChars),
		Indications: firstTruncated(label["indications_and_usage"], drugFieldMaxChars),
	}, nil
}

// firstTruncated renders a label field. OpenFDA sends lists of strings; a
// bare string is accepted too, and any other shape is "N/A".
func firstTruncated(value any, n int) string {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case []any:
		if len(v) > 0 {
			text, _ = v[0].(string)
		}
	}
	if strings.TrimSpace(text) == "" {
		return "N/A"
	}
	return truncateRunes(text, n)
}
