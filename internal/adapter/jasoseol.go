package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobfinder/internal/model"
)

const (
	jasoseolBaseURL = "https://jasoseol.com"

	jasoseolCardSelector = "#__next > div > div.responsive-layout > main > div.px-4 > div > main > div > a"
	jasoseolDateSelector = "div.flex-1 div.mt-4 span"

	// jasoseolMinItems is the smallest page that still counts as a result page.
	jasoseolMinItems = 3
)

// JasoseolAdapter scrapes the jasoseol.com recruit search listing.
type JasoseolAdapter struct {
	dutyGroupIDs []string
	client       *http.Client
	baseURL      string
}

// NewJasoseolAdapter creates an adapter filtered to the given duty groups.
func NewJasoseolAdapter(dutyGroupIDs []string, client *http.Client) *JasoseolAdapter {
	return &JasoseolAdapter{
		dutyGroupIDs: dutyGroupIDs,
		client:       client,
		baseURL:      jasoseolBaseURL,
	}
}

func (a *JasoseolAdapter) Name() string       { return "jasoseol" }
func (a *JasoseolAdapter) BaseURL() string    { return a.baseURL }
func (a *JasoseolAdapter) StopRule() StopRule { return MinItems(jasoseolMinItems) }

// FetchPage parses the recruit cards on one search page. Start and end dates
// are the first and third date spans on the card; the second is the "~".
func (a *JasoseolAdapter) FetchPage(ctx context.Context, page int) ([]model.RawRecord, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if len(a.dutyGroupIDs) > 0 {
		q.Set("dutyGroupIds", strings.Join(a.dutyGroupIDs, ","))
	}
	q.Set("excludeClosed", "true")
	pageURL := a.baseURL + "/search?" + q.Encode()

	doc, err := getDocument(ctx, a.client, pageURL)
	if err != nil {
		return nil, fmt.Errorf("jasoseol fetch page %d: %w", page, err)
	}

	var records []model.RawRecord
	doc.Find(jasoseolCardSelector).Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Attr("href")
		spans := card.Find(jasoseolDateSelector)

		rec := model.RawRecord{
			Company: text(card.Find("h5").First()),
			Title:   text(card.Find("h4").First()),
			Detail:  href,
		}
		if spans.Length() > 0 {
			rec.StartText = text(spans.Eq(0))
		}
		if spans.Length() > 2 {
			rec.EndText = text(spans.Eq(2))
		}
		records = append(records, rec)
	})
	return records, nil
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
