// Package careeronestop fetches occupation detail and labor market
// information from the CareerOneStop API.
package careeronestop

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"skillsync/internal/config"
	"skillsync/internal/soc"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const countryCode = "US"

// DetailOptions selects which O*NET sections the occupation endpoint returns.
type DetailOptions struct {
	Tasks              bool
	Skills             bool
	Knowledge          bool
	Abilities          bool
	ToolsAndTechnology bool
}

// AllDetailOptions requests every section.
func AllDetailOptions() DetailOptions {
	return DetailOptions{Tasks: true, Skills: true, Knowledge: true, Abilities: true, ToolsAndTechnology: true}
}

type OccupationDetail struct {
	ONetCode              string
	Title                 string
	Description           string
	BrightOutlook         string
	BrightOutlookCategory string
	VideoURL              string
	Tasks                 []string
	ToolsAndTechnology    []string
	Skills                []string
	Knowledge             []string
	Abilities             []string
}

type LaborMarketInfo struct {
	CareerOutlook      string
	AveragePayState    *float64
	AveragePayNational *float64
	TypicalTraining    string
}

// OccupationData is the merged comprehensive view. LMI is nil when the state
// endpoint had nothing for the occupation.
type OccupationData struct {
	SOCCode string
	Detail  OccupationDetail
	LMI     *LaborMarketInfo
}

type Client struct {
	http    *resty.Client
	cfg     config.COSConfig
	logger  *log.Logger
	limiter *rate.Limiter
}

func NewClient(cfg config.COSConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	delay := cfg.BatchDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(30 * time.Second).
			SetAuthToken(cfg.Token),
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// OccupationDetails fetches one occupation keyed by its O*NET code. A non-2xx
// response means no data, not failure: the API routinely 404s for valid SOC
// codes it has no record for.
func (c *Client) OccupationDetails(ctx context.Context, socCode string, opts DetailOptions) (*OccupationDetail, error) {
	onet, err := soc.ONetCode(socCode)
	if err != nil {
		return nil, fmt.Errorf("careeronestop: %w", err)
	}

	req := c.http.R().SetContext(ctx)
	for flag, on := range map[string]bool{
		"tasks":              opts.Tasks,
		"skills":             opts.Skills,
		"knowledge":          opts.Knowledge,
		"abilities":          opts.Abilities,
		"toolsAndTechnology": opts.ToolsAndTechnology,
	} {
		if on {
			req.SetQueryParam(flag, "true")
		}
	}

	resp, err := req.Get(fmt.Sprintf("/occupation/%s/%s/%s", c.cfg.UserID, onet, countryCode))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		c.logger.Printf("cos=occupation soc=%s status=%d", socCode, resp.StatusCode())
		return nil, nil
	}

	detail := gjson.Get(resp.String(), "OccupationDetail.0")
	if !detail.Exists() {
		return nil, nil
	}

	return &OccupationDetail{
		ONetCode:              onet,
		Title:                 firstString(detail, "OnetTitle", "SocInfo.SocTitle"),
		Description:           firstString(detail, "OnetDescription", "SocInfo.SocDescription"),
		BrightOutlook:         detail.Get("BrightOutlook").String(),
		BrightOutlookCategory: detail.Get("BrightOutlookCategory").String(),
		VideoURL:              detail.Get("COSVideoURL").String(),
		Tasks:                 stringList(detail.Get("Tasks"), "TaskDescription"),
		ToolsAndTechnology:    stringList(detail.Get("ToolsAndTechnology"), "ToolsAndTechnologyDescription"),
		Skills:                stringList(detail.Get("Skills"), "ElementName"),
		Knowledge:             stringList(detail.Get("Knowledge"), "ElementName"),
		Abilities:             stringList(detail.Get("Abilities"), "ElementName"),
	}, nil
}

// LaborMarketInfo fetches the state-scoped LMI sub-object.
func (c *Client) LaborMarketInfo(ctx context.Context, socCode string) (*LaborMarketInfo, error) {
	onet, err := soc.ONetCode(socCode)
	if err != nil {
		return nil, fmt.Errorf("careeronestop: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/lmi/%s/%s/%s", c.cfg.UserID, onet, c.cfg.StateCode))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		c.logger.Printf("cos=lmi soc=%s status=%d", socCode, resp.StatusCode())
		return nil, nil
	}

	lmi := gjson.Get(resp.String(), "LMI")
	if !lmi.Exists() {
		return nil, nil
	}

	return &LaborMarketInfo{
		CareerOutlook:      lmi.Get("CareerOutLook").String(),
		AveragePayState:    parsePay(lmi.Get("AveragePayState")),
		AveragePayNational: parsePay(lmi.Get("AveragePayNational")),
		TypicalTraining:    lmi.Get("TypicalTraining").String(),
	}, nil
}

// ComprehensiveOccupationData fetches detail and LMI concurrently and merges
// them. No detail means no data overall, even when LMI exists.
func (c *Client) ComprehensiveOccupationData(ctx context.Context, socCode string) (*OccupationData, error) {
	var (
		wg        sync.WaitGroup
		detail    *OccupationDetail
		detailErr error
		lmi       *LaborMarketInfo
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		detail, detailErr = c.OccupationDetails(ctx, socCode, AllDetailOptions())
	}()
	go func() {
		defer wg.Done()
		var err error
		lmi, err = c.LaborMarketInfo(ctx, socCode)
		if err != nil {
			c.logger.Printf("cos=lmi soc=%s err=%v", socCode, err)
			lmi = nil
		}
	}()
	wg.Wait()

	if detailErr != nil {
		return nil, detailErr
	}
	if detail == nil {
		c.logger.Printf("cos=occupation soc=%s status=no_data", socCode)
		return nil, nil
	}

	canonical, err := soc.Canonical(socCode)
	if err != nil {
		return nil, err
	}
	return &OccupationData{SOCCode: canonical, Detail: *detail, LMI: lmi}, nil
}

// BatchOccupationData fetches occupations sequentially with a fixed pause
// between items. SOC codes with no data or transient failures are skipped.
func (c *Client) BatchOccupationData(ctx context.Context, socCodes []string) ([]*OccupationData, error) {
	results := make([]*OccupationData, 0, len(socCodes))
	for i, code := range socCodes {
		if i > 0 {
			if err := c.limiter.Wait(ctx); err != nil {
				return results, err
			}
		}

		data, err := c.ComprehensiveOccupationData(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			c.logger.Printf("cos=batch soc=%s err=%v", code, err)
			continue
		}
		if data != nil {
			results = append(results, data)
		}
	}
	return results, nil
}

func firstString(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := v.Get(p).String(); s != "" {
			return s
		}
	}
	return ""
}

// stringList flattens an array of objects to their named field, falling back
// to the raw string when the API returns plain strings.
func stringList(arr gjson.Result, field string) []string {
	if !arr.IsArray() {
		return nil
	}
	var out []string
	arr.ForEach(func(_, item gjson.Result) bool {
		s := item.Get(field).String()
		if s == "" {
			s = item.String()
		}
		if s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

func parsePay(v gjson.Result) *float64 {
	if !v.Exists() {
		return nil
	}
	f, err := strconv.ParseFloat(v.String(), 64)
	if err != nil {
		return nil
	}
	return &f
}
