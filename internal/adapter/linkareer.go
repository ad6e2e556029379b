package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/amishk599/jobfinder/internal/model"
)

const (
	linkareerAPIURL   = "https://api.linkareer.com/graphql"
	linkareerBaseURL  = "https://linkareer.com"
	linkareerQuerySHA = "e1076190cb0a0ba669a18e17907cbffb8c848d60f16ad06b896dc0171708ef80"

	// DefaultLinkareerPageSize is the page size the RecruitList query is issued with.
	DefaultLinkareerPageSize = 20
)

// linkareerID accepts the GraphQL ID as either a JSON string or number.
type linkareerID string

func (id *linkareerID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = linkareerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("linkareer id %s: %w", b, err)
	}
	*id = linkareerID(n.String())
	return nil
}

type linkareerNode struct {
	ID               linkareerID `json:"id"`
	Title            string      `json:"title"`
	OrganizationName string      `json:"organizationName"`
	RecruitCloseAt   *int64      `json:"recruitCloseAt"` // epoch millis
}

type linkareerResponse struct {
	Data struct {
		Activities struct {
			Nodes []linkareerNode `json:"nodes"`
		} `json:"activities"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// LinkareerAdapter pages through the linkareer.com RecruitList GraphQL query.
type LinkareerAdapter struct {
	pageSize int
	client   *http.Client
	apiURL   string
}

// NewLinkareerAdapter creates an adapter for open recruit activities.
// pageSize <= 0 uses DefaultLinkareerPageSize.
func NewLinkareerAdapter(pageSize int, client *http.Client) *LinkareerAdapter {
	if pageSize <= 0 {
		pageSize = DefaultLinkareerPageSize
	}
	return &LinkareerAdapter{pageSize: pageSize, client: client, apiURL: linkareerAPIURL}
}

func (a *LinkareerAdapter) Name() string       { return "linkareer" }
func (a *LinkareerAdapter) BaseURL() string    { return linkareerBaseURL }
func (a *LinkareerAdapter) StopRule() StopRule { return FullPages(a.pageSize) }

// FetchPage issues the persisted RecruitList query for one page.
func (a *LinkareerAdapter) FetchPage(ctx context.Context, page int) ([]model.RawRecord, error) {
	variables, err := json.Marshal(map[string]any{
		"filterBy": map[string]any{
			"status":         "OPEN",
			"activityTypeID": "5",
			"categoryIDs":    []string{},
		},
		"activityOrder": map[string]string{
			"field":     "RECENT",
			"direction": "DESC",
		},
		"page":     page,
		"pageSize": a.pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("linkareer variables: %w", err)
	}
	extensions, err := json.Marshal(map[string]any{
		"persistedQuery": map[string]any{"version": 1, "sha256Hash": linkareerQuerySHA},
	})
	if err != nil {
		return nil, fmt.Errorf("linkareer extensions: %w", err)
	}

	q := url.Values{}
	q.Set("operationName", "RecruitList")
	q.Set("variables", string(variables))
	q.Set("extensions", string(extensions))

	var resp linkareerResponse
	if err := getJSON(ctx, a.client, a.apiURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("linkareer fetch page %d: %w", page, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("linkareer fetch page %d: graphql: %s", page, resp.Errors[0].Message)
	}

	nodes := resp.Data.Activities.Nodes
	records := make([]model.RawRecord, 0, len(nodes))
	for _, n := range nodes {
		rec := model.RawRecord{
			Company: n.OrganizationName,
			Title:   n.Title,
			Detail:  "/activity/" + string(n.ID),
		}
		if n.RecruitCloseAt != nil && *n.RecruitCloseAt > 0 {
			t := time.UnixMilli(*n.RecruitCloseAt)
			rec.EndAt = &t
		}
		records = append(records, rec)
	}
	return records, nil
}
