package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobfinder/internal/model"
)

const (
	saraminBaseURL = "https://www.saramin.co.kr"

	saraminItemSelector    = "#recruit_info_list > div.content > div"
	saraminTitleSelector   = "div.area_job > h2 > a"
	saraminCompanySelector = "div.area_corp > strong > a"
	saraminDateSelector    = "div.area_job > div.job_date > span"
)

// SaraminAdapter scrapes saramin.co.kr keyword search results.
type SaraminAdapter struct {
	keyword string
	client  *http.Client
	baseURL string
}

// NewSaraminAdapter creates an adapter searching for keyword.
func NewSaraminAdapter(keyword string, client *http.Client) *SaraminAdapter {
	return &SaraminAdapter{keyword: keyword, client: client, baseURL: saraminBaseURL}
}

func (a *SaraminAdapter) Name() string       { return "saramin" }
func (a *SaraminAdapter) BaseURL() string    { return a.baseURL }
func (a *SaraminAdapter) StopRule() StopRule { return MinItems(1) }

// FetchPage parses one page of search results. Saramin publishes only a
// deadline, e.g. "~ 12/13(토)".
func (a *SaraminAdapter) FetchPage(ctx context.Context, page int) ([]model.RawRecord, error) {
	q := url.Values{}
	q.Set("search_area", "main")
	q.Set("search_done", "y")
	q.Set("search_optional_item", "n")
	q.Set("searchType", "search")
	q.Set("searchword", a.keyword)
	q.Set("recruitPage", strconv.Itoa(page))
	pageURL := a.baseURL + "/zf_user/search?" + q.Encode()

	doc, err := getDocument(ctx, a.client, pageURL)
	if err != nil {
		return nil, fmt.Errorf("saramin fetch page %d: %w", page, err)
	}

	var records []model.RawRecord
	doc.Find(saraminItemSelector).Each(func(_ int, item *goquery.Selection) {
		title := item.Find(saraminTitleSelector).First()
		if title.Length() == 0 {
			return
		}
		href, _ := title.Attr("href")
		records = append(records, model.RawRecord{
			Company: text(item.Find(saraminCompanySelector).First()),
			Title:   text(title),
			EndText: text(item.Find(saraminDateSelector).First()),
			Detail:  href,
		})
	})
	return records, nil
}
