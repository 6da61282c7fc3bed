package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/zulandar/buildwatch/internal/project"
	"golang.org/x/time/rate"
)

// OpenDataName is the source label of CKAN batches.
const OpenDataName = "City of Toronto Open Data"

// maxResponseSize caps a datastore_search response body.
const maxResponseSize = 20 << 20

// OpenDataOpts configures an OpenData source.
type OpenDataOpts struct {
	URL               string
	ResourceID        string
	Limit             int
	Timeout           time.Duration
	RequestsPerSecond float64
	Center            Point
	City              string
	Seed              int64 // keys per-permit progress and coordinate jitter
	Client            *http.Client
}

// OpenData queries a CKAN datastore_search endpoint for building permits.
// Each fetch is a single attempt. A permit whose status has not changed maps
// to the same progress and coordinates on every fetch.
type OpenData struct {
	url        string
	resourceID string
	limit      int
	center     Point
	city       string
	client     *http.Client
	limiter    *rate.Limiter
	seed       int64
}

// NewOpenData builds an OpenData source from opts.
func NewOpenData(opts OpenDataOpts) (*OpenData, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("source: open data url is required")
	}
	if opts.ResourceID == "" {
		return nil, fmt.Errorf("source: open data resource id is required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	city := opts.City
	if city == "" {
		city = "Toronto"
	}
	return &OpenData{
		url:        opts.URL,
		resourceID: opts.ResourceID,
		limit:      opts.Limit,
		center:     opts.Center,
		city:       city,
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		seed:       opts.Seed,
	}, nil
}

// Name implements Source.
func (o *OpenData) Name() string { return OpenDataName }

// FetchProjects implements Source.
func (o *OpenData) FetchProjects(ctx context.Context) ([]project.ConstructionProject, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("source: rate limit: %w", err)
	}

	body, err := o.get(ctx)
	if err != nil {
		return nil, err
	}
	return o.parse(body)
}

func (o *OpenData) get(ctx context.Context) ([]byte, error) {
	q := url.Values{}
	q.Set("resource_id", o.resourceID)
	if o.limit > 0 {
		q.Set("limit", strconv.Itoa(o.limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("source: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: fetch: HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("source: read body: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("source: response too large (exceeds %d bytes)", maxResponseSize)
	}
	return body, nil
}

func (o *OpenData) parse(body []byte) ([]project.ConstructionProject, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("source: response is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if ok := root.Get("success"); ok.Exists() && !ok.Bool() {
		return nil, fmt.Errorf("source: datastore error: %s", root.Get("error.message").String())
	}

	records := root.Get("result.records")
	if !records.IsArray() {
		return nil, fmt.Errorf("source: response has no result.records")
	}

	seen := make(map[string]bool)
	var out []project.ConstructionProject
	records.ForEach(func(_, rec gjson.Result) bool {
		p, ok := o.record(rec)
		if ok && !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p)
		}
		return true
	})
	return out, nil
}

// record maps one permit row. Rows without a permit number are skipped.
func (o *OpenData) record(rec gjson.Result) (project.ConstructionProject, bool) {
	permit := strings.TrimSpace(rec.Get("PERMIT_NUM").String())
	if permit == "" {
		return project.ConstructionProject{}, false
	}
	id := "bp-" + strings.Join(strings.Fields(permit), "-")
	if rev := strings.TrimSpace(rec.Get("REVISION_NUM").String()); rev != "" && rev != "00" {
		id += "-r" + rev
	}

	street := joinNonEmpty(
		rec.Get("STREET_NUM").String(),
		titleCase(rec.Get("STREET_NAME").String()),
		titleCase(rec.Get("STREET_TYPE").String()),
		rec.Get("STREET_DIRECTION").String(),
	)
	work := strings.TrimSpace(rec.Get("WORK").String())
	ptype := typeForWork(work, rec.Get("PERMIT_TYPE").String())
	rawStatus := strings.TrimSpace(rec.Get("STATUS").String())
	status, lo, hi := band(rawStatus)

	name := street
	if work != "" {
		name = fmt.Sprintf("%s (%s)", street, work)
	}
	address := street
	if address != "" {
		address += ", " + o.city
	}

	lat, lng := rec.Get("LATITUDE").Float(), rec.Get("LONGITUDE").Float()
	if lat == 0 || lng == 0 {
		pos := recordRand(o.seed, id, "position")
		lat = o.center.Latitude + (pos.Float64()*2-1)*spread
		lng = o.center.Longitude + (pos.Float64()*2-1)*spread
	}

	return project.Assemble(project.ConstructionProject{
		ID:                  id,
		Name:                name,
		Address:             address,
		ProjectType:         ptype,
		Description:         strings.TrimSpace(rec.Get("DESCRIPTION").String()),
		Value:               rec.Get("EST_CONST_COST").Float(),
		PermitNumber:        permit,
		PermitDate:          dateOnly(rec.Get("ISSUED_DATE").String()),
		Status:              status,
		Latitude:            lat,
		Longitude:           lng,
		Contractor:          titleCase(rec.Get("BUILDER_NAME").String()),
		EstimatedCompletion: dateOnly(rec.Get("COMPLETED_DATE").String()),
		OverallProgress:     lo + recordRand(o.seed, id, rawStatus).Intn(hi-lo+1),
	}), true
}

// band maps a permit status to a display status and an overall-progress range.
func band(status string) (string, int, int) {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "closed"), strings.Contains(s, "complete"):
		return project.StatusCompleted, 100, 100
	case strings.Contains(s, "hold"), strings.Contains(s, "suspend"):
		return project.StatusOnHold, 10, 60
	case strings.Contains(s, "inspection"):
		return project.StatusUnderConstruction, 30, 95
	case strings.Contains(s, "issued"):
		return project.StatusActivePermit, 5, 40
	case strings.Contains(s, "not started"), strings.Contains(s, "review"), strings.Contains(s, "received"):
		return project.StatusActivePermit, 0, 10
	}
	return project.StatusActivePermit, 0, 100
}

func typeForWork(work, permitType string) string {
	w := strings.ToLower(work + " " + permitType)
	switch {
	case strings.Contains(w, "demolition"):
		return project.TypeDemolition
	case strings.Contains(w, "addition"):
		return project.TypeAddition
	case strings.Contains(w, "new building"), strings.Contains(w, "new house"):
		return project.TypeNewBuild
	}
	return project.TypeRenovation
}

func dateOnly(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// titleCase turns "KING" into "King". Permit rows are upper case.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
